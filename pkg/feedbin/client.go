// Package feedbin is a small client for the Feedbin v2 REST API. It signs
// every request with the account credentials it was built with, encodes query
// parameters, sends JSON or raw bodies, and translates non-success statuses into
// *APIError values.
package feedbin

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/cockroachdb/errors"
)

const (
	// DefaultBaseURL is the public Feedbin API root.
	DefaultBaseURL = "https://api.feedbin.com/v2"
	// DefaultTimeout bounds a single HTTP exchange with Feedbin.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the number of extra attempts made for idempotent reads.
	DefaultMaxRetries = 3

	jsonContentType = "application/json; charset=utf-8"
)

// Credentials identify the Feedbin account every outbound call acts on. The
// value is built once at startup and never mutated.
type Credentials struct {
	Email    string
	Password string
}

// Valid reports whether both fields are present.
func (c Credentials) Valid() bool {
	return c.Email != "" && c.Password != ""
}

func (c Credentials) authorization() string {
	raw := c.Email + ":" + c.Password
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(raw))
}

// Client issues authenticated requests against the Feedbin API. It is safe for
// concurrent use; all of its fields are read-only after NewClient returns.
type Client struct {
	creds      Credentials
	baseURL    string
	httpClient *http.Client
	userAgent  string
	maxRetries int
	backoff    func() backoff.BackOff
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL points the client at a different API root, e.g. a test server.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(base, "/")
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithMaxRetries caps how many times a failed GET is retried. Zero disables retries.
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n < 0 {
			n = 0
		}
		c.maxRetries = n
	}
}

// WithBackOff overrides the retry schedule. Mostly useful in tests.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.backoff = newBackOff
	}
}

// NewClient builds a Client bound to creds.
func NewClient(creds Credentials, opts ...Option) *Client {
	c := &Client{
		creds:      creds,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: DefaultTimeout},
		userAgent:  "feedbin-mcp",
		maxRetries: DefaultMaxRetries,
		backoff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 250 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Params holds query parameters. Unset values are left out of the query string.
type Params map[string]string

// SetString records v under key unless it is empty.
func (p Params) SetString(key, v string) {
	if v != "" {
		p[key] = v
	}
}

// SetInt records v under key unless it is zero.
func (p Params) SetInt(key string, v int64) {
	if v != 0 {
		p[key] = strconv.FormatInt(v, 10)
	}
}

// SetBool records *v under key unless v is nil.
func (p Params) SetBool(key string, v *bool) {
	if v != nil {
		p[key] = strconv.FormatBool(*v)
	}
}

func (p Params) encode() string {
	if len(p) == 0 {
		return ""
	}
	values := make(url.Values, len(p))
	for k, v := range p {
		values.Set(k, v)
	}
	return values.Encode()
}

// RequestOptions describe one call. The zero value is a plain GET.
type RequestOptions struct {
	Method string
	Params Params
	// Body is encoded as JSON when non-nil.
	Body any
	// RawBody is sent verbatim with ContentType, taking precedence over Body.
	RawBody     []byte
	ContentType string
}

// Response is a successful Feedbin reply.
type Response struct {
	StatusCode int
	Header     http.Header
	// Data holds the raw response body; it is empty for 204 No Content.
	Data []byte
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v any) error {
	if len(r.Data) == 0 {
		return errors.New("feedbin: empty response body")
	}
	return errors.Wrap(json.Unmarshal(r.Data, v), "feedbin: decode response")
}

// Do performs a request against path (relative to the API root, e.g.
// "/subscriptions.json"). GET requests are retried on 429, 5xx and transport
// failures; every other verb is attempted exactly once.
func (c *Client) Do(ctx context.Context, path string, opts *RequestOptions) (*Response, error) {
	if !c.creds.Valid() {
		return nil, ErrNotConfigured
	}
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var payload []byte
	contentType := opts.ContentType
	switch {
	case opts.RawBody != nil:
		payload = opts.RawBody
	case opts.Body != nil:
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, errors.Wrapf(err, "feedbin: encode %s %s body", method, path)
		}
		payload = encoded
		if contentType == "" {
			contentType = jsonContentType
		}
	}

	target := c.baseURL + path
	if qs := opts.Params.encode(); qs != "" {
		target += "?" + qs
	}

	attempt := func() (*Response, error) {
		return c.roundTrip(ctx, method, target, contentType, payload)
	}

	tries := uint(1)
	if method == http.MethodGet {
		tries += uint(c.maxRetries) // #nosec G115 -- maxRetries is clamped to >= 0
	}
	return backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.backoff()),
		backoff.WithMaxTries(tries),
	)
}

// Get is shorthand for a GET with optional query parameters.
func (c *Client) Get(ctx context.Context, path string, params Params) (*Response, error) {
	return c.Do(ctx, path, &RequestOptions{Params: params})
}

func (c *Client) roundTrip(ctx context.Context, method, target, contentType string, payload []byte) (*Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, backoff.Permanent(errors.Wrap(err, "feedbin: build request"))
	}
	req.Header.Set("Authorization", c.creds.authorization())
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(errors.Wrapf(ctx.Err(), "feedbin: %s %s", method, req.URL.Path))
		}
		return nil, errors.Wrapf(err, "feedbin: %s %s", method, req.URL.Path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "feedbin: read %s %s response", method, req.URL.Path)
	}

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header}, nil
	case resp.StatusCode >= 200 && resp.StatusCode < 300,
		resp.StatusCode == http.StatusMultipleChoices:
		return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Data: data}, nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Status:     http.StatusText(resp.StatusCode),
		Body:       strings.TrimSpace(string(data)),
	}
	if apiErr.Retryable() {
		return nil, apiErr
	}
	return nil, backoff.Permanent(apiErr)
}
