package mcpgateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

const (
	testAPIKey          = "secret-key"
	testProtocolVersion = "2025-06-18"
	initializeBody      = `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2025-06-18","capabilities":{},"clientInfo":{"name":"gateway-test","version":"1.0.0"}}}`
	initializedBody     = `{"jsonrpc":"2.0","method":"notifications/initialized"}`
)

type echoInput struct {
	Text string `json:"text" jsonschema:"text to echo back"`
}

// serverRecorder is a ServerFactory that remembers every server it built.
type serverRecorder struct {
	mu      sync.Mutex
	servers []*mcp.Server
}

func (f *serverRecorder) build() *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "echo", Version: "test"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: "echo", Description: "Echo text."},
		func(_ context.Context, _ *mcp.CallToolRequest, in echoInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: in.Text}}}, nil, nil
		})
	f.mu.Lock()
	f.servers = append(f.servers, server)
	f.mu.Unlock()
	return server
}

func (f *serverRecorder) built() []*mcp.Server {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*mcp.Server(nil), f.servers...)
}

func newTestGateway(t *testing.T, opts *Options) (*Gateway, *serverRecorder) {
	t.Helper()
	if opts == nil {
		opts = &Options{}
	}
	if opts.APIKey == "" {
		opts.APIKey = testAPIKey
	}
	factory := &serverRecorder{}
	g, err := NewGateway(factory.build, opts)
	require.NoError(t, err)
	t.Cleanup(g.Close)
	return g, factory
}

func newTestServer(t *testing.T, g *Gateway) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(g.Handler())
	t.Cleanup(srv.Close)
	return srv
}

type rawResponse struct {
	status int
	header http.Header
	body   string
}

// do sends one request to srv with the protocol headers a conforming client sets.
func do(t *testing.T, srv *httptest.Server, method, sessionID, body string) rawResponse {
	t.Helper()
	return doWithHeaders(t, srv, method, sessionID, body, nil)
}

// doWithHeaders is do with header overrides applied last. An empty value
// removes the header.
func doWithHeaders(t *testing.T, srv *httptest.Server, method, sessionID, body string, headers map[string]string) rawResponse {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, srv.URL+"/mcp", reader)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	req.Header.Set("Accept", "application/json, text/event-stream")
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != "" {
		req.Header.Set(SessionIDHeader, sessionID)
		req.Header.Set(ProtocolVersionHeader, testProtocolVersion)
	}
	for k, v := range headers {
		if v == "" {
			req.Header.Del(k)
			continue
		}
		req.Header.Set(k, v)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return rawResponse{status: resp.StatusCode, header: resp.Header, body: string(data)}
}

// initialize opens a session over raw HTTP and returns its id.
func initialize(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp := do(t, srv, http.MethodPost, "", initializeBody)
	require.Equal(t, http.StatusOK, resp.status, resp.body)
	id := resp.header.Get(SessionIDHeader)
	require.NotEmpty(t, id)
	return id
}

func decodeRPCError(t *testing.T, body string) rpcError {
	t.Helper()
	var out rpcErrorBody
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Equal(t, "2.0", out.JSONRPC)
	return out.Error
}

func decodeError(t *testing.T, body string) string {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out.Error
}
