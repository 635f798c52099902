// Package tools defines the Feedbin tool catalog exposed over MCP. Every
// protocol session gets its own *mcp.Server built by NewServer; the only value
// shared between servers is the read-only *feedbin.Client.
package tools

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

const (
	// ServerName is advertised to clients during initialization.
	ServerName = "feedbin"
	// MaxEntryIDs is the Feedbin limit for bulk entry state changes.
	MaxEntryIDs = 1000

	modeExtended = "extended"
)

// Feedbin is the subset of *feedbin.Client the tools depend on.
type Feedbin interface {
	Do(ctx context.Context, path string, opts *feedbin.RequestOptions) (*feedbin.Response, error)
}

// NewServer returns a fresh MCP server with the whole catalog registered.
func NewServer(fb Feedbin, version string) *mcp.Server {
	if version == "" {
		version = "dev"
	}
	server := mcp.NewServer(&mcp.Implementation{
		Name:    ServerName,
		Title:   "Feedbin",
		Version: version,
	}, nil)
	Register(server, fb)
	return server
}

// Register adds every Feedbin tool to server.
func Register(server *mcp.Server, fb Feedbin) {
	registerSubscriptionTools(server, fb)
	registerEntryTools(server, fb)
	registerReadingTools(server, fb)
	registerOrganizationTools(server, fb)
	registerContentTools(server, fb)
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func errorResult(err error) *mcp.CallToolResult {
	res := textResult(err.Error())
	res.IsError = true
	return res
}

// formatJSON pretty-prints raw JSON with two-space indentation. Bodies that are
// not JSON are returned untouched.
func formatJSON(raw []byte) string {
	if len(raw) == 0 {
		return "null"
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}

func jsonResult(resp *feedbin.Response) *mcp.CallToolResult {
	return textResult(formatJSON(resp.Data))
}

// call runs one request and renders its body as pretty JSON.
func call(ctx context.Context, fb Feedbin, path string, opts *feedbin.RequestOptions) (*mcp.CallToolResult, any, error) {
	resp, err := fb.Do(ctx, path, opts)
	if err != nil {
		return errorResult(err), nil, nil
	}
	return jsonResult(resp), nil, nil
}

// confirm runs one request and replies with msg when it succeeds.
func confirm(ctx context.Context, fb Feedbin, path string, opts *feedbin.RequestOptions, msg string) (*mcp.CallToolResult, any, error) {
	if _, err := fb.Do(ctx, path, opts); err != nil {
		return errorResult(err), nil, nil
	}
	return textResult(msg), nil, nil
}

func checkMode(mode string) error {
	if mode != "" && mode != modeExtended {
		return errors.Newf("invalid mode %q: only %q is supported", mode, modeExtended)
	}
	return nil
}

func checkEntryIDs(ids []int64) error {
	switch {
	case len(ids) == 0:
		return errors.New("entry_ids must contain at least one ID")
	case len(ids) > MaxEntryIDs:
		return errors.Newf("entry_ids accepts at most %d IDs, got %d", MaxEntryIDs, len(ids))
	}
	return nil
}

func checkID(name string, id int64) error {
	if id <= 0 {
		return errors.Newf("%s must be a positive integer", name)
	}
	return nil
}
