// Package app wires the feedbin-mcp command line.
package app

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vikashloomba/feedbin-mcp/pkg/config"
	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
	"github.com/vikashloomba/feedbin-mcp/pkg/logger"
)

// version is overridden at build time with -ldflags "-X .../app.version=...".
var version = "dev"

// NewRootCmd builds the command tree. Every call returns an independent tree
// with its own viper instance.
func NewRootCmd() *cobra.Command {
	v := config.New()

	rootCmd := &cobra.Command{
		Use:   "feedbin-mcp",
		Short: "Feedbin tools for MCP clients",
		Long: `feedbin-mcp exposes a Feedbin account as Model Context Protocol tools.

Run "feedbin-mcp stdio" to serve one client over stdin/stdout, or
"feedbin-mcp serve" to serve many clients over Streamable HTTP.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringP("config", "c", "", "Path to a YAML, TOML or JSON config file")
	mustBind(v, config.KeyDebug, rootCmd.PersistentFlags().Lookup("debug"))
	mustBind(v, config.KeyConfigFile, rootCmd.PersistentFlags().Lookup("config"))

	rootCmd.AddCommand(newServeCmd(v))
	rootCmd.AddCommand(newStdioCmd(v))
	rootCmd.AddCommand(newToolsCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// loadConfig resolves and validates settings for mode and builds the logger.
func loadConfig(v *viper.Viper, mode config.Mode) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, nil, err
	}
	return cfg, logger.New(logger.FromEnv(os.Getenv, cfg.Debug)), nil
}

func newFeedbinClient(cfg *config.Config) *feedbin.Client {
	return feedbin.NewClient(cfg.Credentials(),
		feedbin.WithBaseURL(cfg.Feedbin.BaseURL),
		feedbin.WithHTTPClient(&http.Client{Timeout: cfg.Feedbin.Timeout}),
		feedbin.WithMaxRetries(cfg.Feedbin.MaxRetries),
		feedbin.WithUserAgent("feedbin-mcp/"+version),
	)
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}
