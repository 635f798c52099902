// Command feedbin-mcp exposes a Feedbin account as MCP tools over stdio or
// Streamable HTTP.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/vikashloomba/feedbin-mcp/cmd/feedbin-mcp/app"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "feedbin-mcp: %v\n", err)
		os.Exit(1)
	}
}
