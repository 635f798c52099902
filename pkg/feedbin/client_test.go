package feedbin

import (
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCreds = Credentials{Email: "reader@example.com", Password: "hunter2"}

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	base := []Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	}
	return NewClient(testCreds, append(base, opts...)...)
}

func TestDoSignsRequestsWithBasicAuth(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		want := "Basic " + base64.StdEncoding.EncodeToString([]byte("reader@example.com:hunter2"))
		assert.Equal(t, want, r.Header.Get("Authorization"))
		assert.Equal(t, "feedbin-mcp/test", r.Header.Get("User-Agent"))
		assert.Equal(t, "/subscriptions.json", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1}]`))
	}, WithUserAgent("feedbin-mcp/test"))

	resp, err := client.Get(context.Background(), "/subscriptions.json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `[{"id":1}]`, string(resp.Data))
}

func TestDoEncodesOnlySetParams(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "false", q.Get("read"))
		assert.False(t, q.Has("since"))
		assert.False(t, q.Has("starred"))
		assert.False(t, q.Has("per_page"))
		_, _ = w.Write([]byte(`[]`))
	})

	read := false
	params := Params{}
	params.SetInt("page", 2)
	params.SetInt("per_page", 0)
	params.SetString("since", "")
	params.SetBool("read", &read)
	params.SetBool("starred", nil)

	_, err := client.Get(context.Background(), "/entries.json", params)
	require.NoError(t, err)
}

func TestDoSendsJSONAndRawBodies(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		opts        *RequestOptions
		wantType    string
		wantPayload string
	}{
		{
			name:        "json body",
			opts:        &RequestOptions{Method: http.MethodPost, Body: map[string]any{"feed_url": "https://example.com"}},
			wantType:    "application/json; charset=utf-8",
			wantPayload: `{"feed_url":"https://example.com"}`,
		},
		{
			name:        "raw body",
			opts:        &RequestOptions{Method: http.MethodPost, RawBody: []byte("<opml/>"), ContentType: "text/xml"},
			wantType:    "text/xml",
			wantPayload: "<opml/>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(r.Body)
				assert.NoError(t, err)
				assert.Equal(t, tt.wantType, r.Header.Get("Content-Type"))
				assert.Equal(t, tt.wantPayload, string(body))
				w.WriteHeader(http.StatusCreated)
				_, _ = w.Write([]byte(`{"id":7}`))
			})
			resp, err := client.Do(context.Background(), "/anything.json", tt.opts)
			require.NoError(t, err)
			assert.Equal(t, http.StatusCreated, resp.StatusCode)
		})
	}
}

func TestDoHandlesNoContentAndMultipleChoices(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/taggings/3.json":
			w.WriteHeader(http.StatusNoContent)
		case "/subscriptions.json":
			w.WriteHeader(http.StatusMultipleChoices)
			_, _ = w.Write([]byte(`[{"feed_url":"a"},{"feed_url":"b"}]`))
		}
	})

	resp, err := client.Do(context.Background(), "/taggings/3.json", &RequestOptions{Method: http.MethodDelete})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Empty(t, resp.Data)

	resp, err = client.Do(context.Background(), "/subscriptions.json", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string]string{"feed_url": "example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusMultipleChoices, resp.StatusCode)

	var choices []map[string]string
	require.NoError(t, resp.Decode(&choices))
	assert.Len(t, choices, 2)
}

func TestDoTranslatesErrorStatus(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("nope\n"))
	})

	_, err := client.Get(context.Background(), "/feeds/9.json", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Feedbin API error 404 Not Found: nope", apiErr.Error())
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestDoRetriesIdempotentReads(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := client.Get(context.Background(), "/unread_entries.json", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDoDoesNotRetryWrites(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := client.Do(context.Background(), "/starred_entries.json", &RequestOptions{
		Method: http.MethodPost,
		Body:   map[string][]int64{"starred_entries": {1}},
	})
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusBadGateway))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoStopsOnPermanentClientError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := client.Get(context.Background(), "/authentication.json", nil)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusUnauthorized))
	assert.Equal(t, int32(1), calls.Load())
}

func TestDoWithoutCredentials(t *testing.T) {
	t.Parallel()

	client := NewClient(Credentials{Email: "only@example.com"})
	_, err := client.Get(context.Background(), "/subscriptions.json", nil)
	require.ErrorIs(t, err, ErrNotConfigured)
}
