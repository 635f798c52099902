package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

type listEntriesInput struct {
	Page               int64  `json:"page,omitempty" jsonschema:"page number (default 1)"`
	Since              string `json:"since,omitempty" jsonschema:"ISO 8601 timestamp; only entries created after this date"`
	IDs                string `json:"ids,omitempty" jsonschema:"comma-separated entry IDs to fetch (max 100)"`
	Read               *bool  `json:"read,omitempty" jsonschema:"filter by read status: true for read only, false for unread only"`
	Starred            *bool  `json:"starred,omitempty" jsonschema:"filter by starred status"`
	PerPage            int64  `json:"per_page,omitempty" jsonschema:"results per page (default 100)"`
	Mode               string `json:"mode,omitempty" jsonschema:"set to 'extended' for extra metadata (images, enclosures, etc.)"`
	IncludeContentDiff *bool  `json:"include_content_diff,omitempty" jsonschema:"include HTML diff if the entry was updated"`
}

type getEntryInput struct {
	ID   int64  `json:"id" jsonschema:"the entry ID"`
	Mode string `json:"mode,omitempty" jsonschema:"set to 'extended' for extra metadata"`
}

type feedEntriesInput struct {
	FeedID int64  `json:"feed_id" jsonschema:"the feed ID"`
	Page   int64  `json:"page,omitempty" jsonschema:"page number"`
	Since  string `json:"since,omitempty" jsonschema:"ISO 8601 timestamp filter"`
	Mode   string `json:"mode,omitempty" jsonschema:"set to 'extended' for extra metadata"`
}

type feedIDInput struct {
	ID int64 `json:"id" jsonschema:"the feed ID"`
}

func registerEntryTools(server *mcp.Server, fb Feedbin) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_entries",
		Description: "List feed entries (articles) with optional filters. Returns paginated results (100 per page).",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in listEntriesInput) (*mcp.CallToolResult, any, error) {
		if err := checkMode(in.Mode); err != nil {
			return errorResult(err), nil, nil
		}
		params := feedbin.Params{}
		params.SetInt("page", in.Page)
		params.SetString("since", in.Since)
		params.SetString("ids", in.IDs)
		params.SetBool("read", in.Read)
		params.SetBool("starred", in.Starred)
		params.SetInt("per_page", in.PerPage)
		params.SetString("mode", in.Mode)
		params.SetBool("include_content_diff", in.IncludeContentDiff)

		resp, err := fb.Do(ctx, "/entries.json", &feedbin.RequestOptions{Params: params})
		if err != nil {
			return errorResult(err), nil, nil
		}

		var meta []string
		if count := resp.Header.Get("X-Feedbin-Record-Count"); count != "" {
			meta = append(meta, "Total entries: "+count)
		}
		if link := resp.Header.Get("Link"); link != "" {
			meta = append(meta, "Pagination: "+link)
		}
		body := formatJSON(resp.Data)
		if len(meta) == 0 {
			return textResult(body), nil, nil
		}
		return textResult(strings.Join(meta, "\n") + "\n\n" + body), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_entry",
		Description: "Get a single entry by ID with full content",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in getEntryInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		if err := checkMode(in.Mode); err != nil {
			return errorResult(err), nil, nil
		}
		params := feedbin.Params{}
		params.SetString("mode", in.Mode)
		return call(ctx, fb, fmt.Sprintf("/entries/%d.json", in.ID), &feedbin.RequestOptions{Params: params})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_feed_entries",
		Description: "Get entries for a specific feed",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in feedEntriesInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("feed_id", in.FeedID); err != nil {
			return errorResult(err), nil, nil
		}
		if err := checkMode(in.Mode); err != nil {
			return errorResult(err), nil, nil
		}
		params := feedbin.Params{}
		params.SetInt("page", in.Page)
		params.SetString("since", in.Since)
		params.SetString("mode", in.Mode)
		return call(ctx, fb, fmt.Sprintf("/feeds/%d/entries.json", in.FeedID), &feedbin.RequestOptions{Params: params})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_feed",
		Description: "Get metadata for a specific feed (title, URL, site URL)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in feedIDInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		return call(ctx, fb, fmt.Sprintf("/feeds/%d.json", in.ID), nil)
	})
}
