package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

type tagFeedInput struct {
	FeedID int64  `json:"feed_id" jsonschema:"the feed ID to tag"`
	Name   string `json:"name" jsonschema:"the tag name (folder/category)"`
}

type untagFeedInput struct {
	TaggingID int64 `json:"tagging_id" jsonschema:"the tagging ID to delete"`
}

type renameTagInput struct {
	OldName string `json:"old_name" jsonschema:"current tag name"`
	NewName string `json:"new_name" jsonschema:"new tag name"`
}

type tagNameInput struct {
	Name string `json:"name" jsonschema:"tag name to delete"`
}

type createSavedSearchInput struct {
	Name  string `json:"name" jsonschema:"display name for the saved search"`
	Query string `json:"query" jsonschema:"search query string"`
}

type runSavedSearchInput struct {
	ID             int64 `json:"id" jsonschema:"saved search ID"`
	IncludeEntries *bool `json:"include_entries,omitempty" jsonschema:"return full entry objects instead of just IDs"`
	Page           int64 `json:"page,omitempty" jsonschema:"page number for results"`
}

type savedSearchIDInput struct {
	ID int64 `json:"id" jsonschema:"saved search ID to delete"`
}

func registerOrganizationTools(server *mcp.Server, fb Feedbin) {
	// Taggings associate feeds with tags (folders).
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_taggings",
		Description: "List all taggings (feed-to-tag associations). Shows which feeds belong to which tags/folders.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
		return call(ctx, fb, "/taggings.json", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "tag_feed",
		Description: "Tag a feed (add it to a folder/category)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in tagFeedInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("feed_id", in.FeedID); err != nil {
			return errorResult(err), nil, nil
		}
		return call(ctx, fb, "/taggings.json", &feedbin.RequestOptions{
			Method: http.MethodPost,
			Body:   map[string]any{"feed_id": in.FeedID, "name": in.Name},
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "untag_feed",
		Description: "Remove a tag from a feed",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in untagFeedInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("tagging_id", in.TaggingID); err != nil {
			return errorResult(err), nil, nil
		}
		return confirm(ctx, fb, fmt.Sprintf("/taggings/%d.json", in.TaggingID),
			&feedbin.RequestOptions{Method: http.MethodDelete},
			fmt.Sprintf("Removed tagging %d.", in.TaggingID))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "rename_tag",
		Description: "Rename a tag across all feeds that use it",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in renameTagInput) (*mcp.CallToolResult, any, error) {
		return confirm(ctx, fb, "/tags.json", &feedbin.RequestOptions{
			Method: http.MethodPost,
			Body:   map[string]string{"old_name": in.OldName, "new_name": in.NewName},
		}, fmt.Sprintf("Renamed tag %q to %q.", in.OldName, in.NewName))
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_tag",
		Description: "Delete a tag (removes it from all feeds, does not delete the feeds themselves)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in tagNameInput) (*mcp.CallToolResult, any, error) {
		return confirm(ctx, fb, "/tags.json", &feedbin.RequestOptions{
			Method: http.MethodDelete,
			Body:   map[string]string{"name": in.Name},
		}, fmt.Sprintf("Deleted tag %q.", in.Name))
	})

	// Saved searches.
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_saved_searches",
		Description: "List all saved searches",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
		return call(ctx, fb, "/saved_searches.json", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "create_saved_search",
		Description: "Create a saved search query (e.g. 'javascript is:unread')",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in createSavedSearchInput) (*mcp.CallToolResult, any, error) {
		return call(ctx, fb, "/saved_searches.json", &feedbin.RequestOptions{
			Method: http.MethodPost,
			Body:   map[string]string{"name": in.Name, "query": in.Query},
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "run_saved_search",
		Description: "Run a saved search and get matching entry IDs (or full entries with include_entries)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in runSavedSearchInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		params := feedbin.Params{}
		params.SetBool("include_entries", in.IncludeEntries)
		params.SetInt("page", in.Page)
		return call(ctx, fb, fmt.Sprintf("/saved_searches/%d.json", in.ID), &feedbin.RequestOptions{Params: params})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_saved_search",
		Description: "Delete a saved search",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in savedSearchIDInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		return confirm(ctx, fb, fmt.Sprintf("/saved_searches/%d.json", in.ID),
			&feedbin.RequestOptions{Method: http.MethodDelete},
			fmt.Sprintf("Deleted saved search %d.", in.ID))
	})
}
