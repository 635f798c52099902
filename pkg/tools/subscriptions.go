package tools

import (
	"context"
	"fmt"
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

type listSubscriptionsInput struct {
	Since string `json:"since,omitempty" jsonschema:"ISO 8601 timestamp; only return subscriptions created after this date"`
	Mode  string `json:"mode,omitempty" jsonschema:"set to 'extended' to include JSON Feed metadata"`
}

type subscriptionIDInput struct {
	ID int64 `json:"id" jsonschema:"the subscription ID"`
}

type subscribeInput struct {
	FeedURL string `json:"feed_url" jsonschema:"the feed URL or website URL to subscribe to"`
}

type updateSubscriptionInput struct {
	ID    int64  `json:"id" jsonschema:"the subscription ID"`
	Title string `json:"title" jsonschema:"new custom title for the subscription"`
}

func registerSubscriptionTools(server *mcp.Server, fb Feedbin) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_subscriptions",
		Description: "List all RSS/Atom feed subscriptions in your Feedbin account",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in listSubscriptionsInput) (*mcp.CallToolResult, any, error) {
		if err := checkMode(in.Mode); err != nil {
			return errorResult(err), nil, nil
		}
		params := feedbin.Params{}
		params.SetString("since", in.Since)
		params.SetString("mode", in.Mode)
		return call(ctx, fb, "/subscriptions.json", &feedbin.RequestOptions{Params: params})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_subscription",
		Description: "Get details for a single subscription by ID",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in subscriptionIDInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		return call(ctx, fb, fmt.Sprintf("/subscriptions/%d.json", in.ID), nil)
	})

	mcp.AddTool(server, &mcp.Tool{
		Name: "subscribe",
		Description: "Subscribe to a new RSS/Atom feed. You can provide a feed URL or a site URL " +
			"(Feedbin will auto-discover the feed).",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in subscribeInput) (*mcp.CallToolResult, any, error) {
		if in.FeedURL == "" {
			return errorResult(errors.New("feed_url is required")), nil, nil
		}
		resp, err := fb.Do(ctx, "/subscriptions.json", &feedbin.RequestOptions{
			Method: http.MethodPost,
			Body:   map[string]string{"feed_url": in.FeedURL},
		})
		if err != nil {
			return errorResult(err), nil, nil
		}
		if resp.StatusCode == http.StatusMultipleChoices {
			return textResult("Multiple feeds found at that URL. Choose one:\n" + formatJSON(resp.Data)), nil, nil
		}
		return jsonResult(resp), nil, nil
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "update_subscription",
		Description: "Update a subscription (e.g. set a custom title)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in updateSubscriptionInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		return call(ctx, fb, fmt.Sprintf("/subscriptions/%d.json", in.ID), &feedbin.RequestOptions{
			Method: http.MethodPatch,
			Body:   map[string]string{"title": in.Title},
		})
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "unsubscribe",
		Description: "Unsubscribe from a feed (delete a subscription)",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in subscriptionIDInput) (*mcp.CallToolResult, any, error) {
		if err := checkID("id", in.ID); err != nil {
			return errorResult(err), nil, nil
		}
		return confirm(ctx, fb, fmt.Sprintf("/subscriptions/%d.json", in.ID),
			&feedbin.RequestOptions{Method: http.MethodDelete},
			fmt.Sprintf("Unsubscribed from subscription %d.", in.ID))
	})
}
