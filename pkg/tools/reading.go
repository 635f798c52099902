package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

type noInput struct{}

type entryIDsInput struct {
	EntryIDs []int64 `json:"entry_ids" jsonschema:"array of entry IDs (max 1000)"`
}

type updatedEntriesInput struct {
	Since string `json:"since,omitempty" jsonschema:"ISO 8601 timestamp; only return entries updated after this date"`
}

// entryStateTool describes one bulk change against an entry-id collection
// such as /unread_entries.json or /starred_entries.json.
type entryStateTool struct {
	name        string
	description string
	path        string
	field       string
	method      string
	verb        string
}

var entryStateTools = []entryStateTool{
	{"mark_entries_read", "Mark entries as read", "/unread_entries.json", "unread_entries", http.MethodDelete, "Marked %d entries as read."},
	{"mark_entries_unread", "Mark entries as unread", "/unread_entries.json", "unread_entries", http.MethodPost, "Marked %d entries as unread."},
	{"star_entries", "Star (favorite) entries", "/starred_entries.json", "starred_entries", http.MethodPost, "Starred %d entries."},
	{"unstar_entries", "Unstar (unfavorite) entries", "/starred_entries.json", "starred_entries", http.MethodDelete, "Unstarred %d entries."},
}

func registerReadingTools(server *mcp.Server, fb Feedbin) {
	listOnly := []struct {
		name, description, path string
	}{
		{"get_unread_entries", "Get all unread entry IDs. Use list_entries with the IDs to fetch full content.", "/unread_entries.json"},
		{"get_starred_entries", "Get all starred entry IDs", "/starred_entries.json"},
		{"get_recently_read", "Get recently read entry IDs (reading history)", "/recently_read_entries.json"},
	}
	for _, t := range listOnly {
		path := t.path
		mcp.AddTool(server, &mcp.Tool{Name: t.name, Description: t.description},
			func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
				return call(ctx, fb, path, nil)
			})
	}

	for _, t := range entryStateTools {
		mcp.AddTool(server, &mcp.Tool{Name: t.name, Description: t.description},
			func(ctx context.Context, _ *mcp.CallToolRequest, in entryIDsInput) (*mcp.CallToolResult, any, error) {
				if err := checkEntryIDs(in.EntryIDs); err != nil {
					return errorResult(err), nil, nil
				}
				return confirm(ctx, fb, t.path, &feedbin.RequestOptions{
					Method: t.method,
					Body:   map[string][]int64{t.field: in.EntryIDs},
				}, fmt.Sprintf(t.verb, len(in.EntryIDs)))
			})
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_updated_entries",
		Description: "Get entry IDs for entries whose content has been updated",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in updatedEntriesInput) (*mcp.CallToolResult, any, error) {
		params := feedbin.Params{}
		params.SetString("since", in.Since)
		return call(ctx, fb, "/updated_entries.json", &feedbin.RequestOptions{Params: params})
	})
}
