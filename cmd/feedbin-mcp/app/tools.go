package app

import (
	"context"
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
	"github.com/vikashloomba/feedbin-mcp/pkg/tools"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the tools offered to MCP clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			catalog, err := listTools(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			for _, tool := range catalog {
				fmt.Fprintf(w, "%s\t%s\n", tool.Name, tool.Description)
			}
			return w.Flush()
		},
	}
}

// listTools asks a throwaway in-memory session for the catalog, so the output
// matches what a connected client sees. No Feedbin call is made.
func listTools(ctx context.Context) ([]*mcp.Tool, error) {
	server := tools.NewServer(feedbin.NewClient(feedbin.Credentials{}), version)
	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, errors.Wrap(err, "start catalog server")
	}
	defer func() { _ = serverSession.Close() }()

	client := mcp.NewClient(&mcp.Implementation{Name: "feedbin-mcp-tools", Version: version}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		return nil, errors.Wrap(err, "connect catalog client")
	}
	defer func() { _ = session.Close() }()

	res, err := session.ListTools(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "list tools")
	}
	catalog := res.Tools
	sort.Slice(catalog, func(i, j int) bool { return catalog[i].Name < catalog[j].Name })
	return catalog, nil
}
