package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

type savePageInput struct {
	URL   string `json:"url" jsonschema:"the webpage URL to save"`
	Title string `json:"title,omitempty" jsonschema:"optional custom title"`
}

type importOPMLInput struct {
	OPMLXML string `json:"opml_xml" jsonschema:"the OPML XML content to import"`
}

type importStatusInput struct {
	ID int64 `json:"id" jsonschema:"the import ID to check"`
}

func registerContentTools(server *mcp.Server, fb Feedbin) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "save_page",
		Description: "Save a webpage URL as a Feedbin entry (read-later). Returns the created entry.",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in savePageInput) (*mcp.CallToolResult, any, error) {
		if in.URL == "" {
			return errorResult(errors.New("url is required")), nil, nil
		}
		body := map[string]string{"url": in.URL}
		if in.Title != "" {
			body["title"] = in.Title
		}
		return call(ctx, fb, "/pages.json", &feedbin.RequestOptions{Method: http.MethodPost, Body: body})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_icons",
		Description: "Get favicons for all subscribed feeds",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
		return call(ctx, fb, "/icons.json", nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "import_opml",
		Description: "Import feeds from an OPML file (provide the XML content as a string)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in importOPMLInput) (*mcp.CallToolResult, any, error) {
		if in.OPMLXML == "" {
			return errorResult(errors.New("opml_xml is required")), nil, nil
		}
		return call(ctx, fb, "/imports.json", &feedbin.RequestOptions{
			Method:      http.MethodPost,
			RawBody:     []byte(in.OPMLXML),
			ContentType: "text/xml",
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_import_status",
		Description: "Check the status of an OPML import job",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in importStatusInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		return call(ctx, fb, fmt.Sprintf("/imports/%d.json", in.ID), nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "verify_credentials",
		Description: "Verify that your Feedbin credentials are valid",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, _ noInput) (*mcp.CallToolResult, any, error) {
		if _, err := fb.Do(ctx, "/authentication.json", nil); err != nil {
			return textResult("Credentials are invalid or Feedbin is unreachable."), nil, nil
		}
		return textResult("Credentials are valid."), nil, nil
	})
}
