package app

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vikashloomba/feedbin-mcp/pkg/config"
	"github.com/vikashloomba/feedbin-mcp/pkg/tools"
)

func newStdioCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve one MCP client over stdin/stdout",
		Long: `Run a single MCP session over stdin and stdout, the way desktop MCP clients
launch local servers. Logs are written to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStdio(cmd.Context(), v)
		},
	}
}

func runStdio(ctx context.Context, v *viper.Viper) error {
	cfg, log, err := loadConfig(v, config.ModeStdio)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	server := tools.NewServer(newFeedbinClient(cfg), version)
	log.Info("feedbin-mcp running on stdio", zap.String("version", version))
	err = server.Run(ctx, &mcp.StdioTransport{})
	if err == nil || errors.Is(err, context.Canceled) {
		return nil
	}
	return errors.Wrap(err, "stdio session")
}
