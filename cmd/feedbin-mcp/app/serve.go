package app

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/vikashloomba/feedbin-mcp/pkg/config"
	mcpgateway "github.com/vikashloomba/feedbin-mcp/pkg/mcp-gateway"
	"github.com/vikashloomba/feedbin-mcp/pkg/tools"
)

const redisPingTimeout = 5 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP clients over Streamable HTTP",
		Long: `Start an HTTP server that multiplexes many MCP client sessions onto one
Feedbin account. Every request to /mcp must carry "Authorization: Bearer <MCP_API_KEY>".`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("host", "0.0.0.0", "Interface to listen on")
	flags.Int("port", 3000, "Port to listen on")
	flags.String("auth-mode", string(mcpgateway.AuthModeHeader), `Where clients may send the API key: "header" or "header-or-query"`)
	flags.Duration("session-idle-timeout", 30*time.Minute, "Close sessions idle for this long (0 disables)")
	flags.StringSlice("allowed-origins", nil, "Origins allowed by CORS")
	flags.Bool("metrics", true, "Serve Prometheus metrics on /metrics")
	flags.String("redis-url", "", "Mirror live session ids into this Redis instance")

	mustBind(v, config.KeyHost, flags.Lookup("host"))
	mustBind(v, config.KeyPort, flags.Lookup("port"))
	mustBind(v, config.KeyAuthMode, flags.Lookup("auth-mode"))
	mustBind(v, config.KeySessionIdleTimeout, flags.Lookup("session-idle-timeout"))
	mustBind(v, config.KeyAllowedOrigins, flags.Lookup("allowed-origins"))
	mustBind(v, config.KeyMetrics, flags.Lookup("metrics"))
	mustBind(v, config.KeyRedisURL, flags.Lookup("redis-url"))

	return cmd
}

func runServe(ctx context.Context, v *viper.Viper) error {
	cfg, log, err := loadConfig(v, config.ModeServe)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	authMode, err := mcpgateway.ParseAuthMode(cfg.AuthMode)
	if err != nil {
		return err
	}
	fb := newFeedbinClient(cfg)
	opts := &mcpgateway.Options{
		Name:               "feedbin-mcp",
		Addr:               cfg.Addr(),
		APIKey:             cfg.APIKey,
		AuthMode:           authMode,
		SessionIdleTimeout: cfg.SessionIdleTimeout,
		AllowedOrigins:     cfg.AllowedOrigins,
		Logger:             log,
	}
	if cfg.Metrics {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		opts.Metrics = reg
	}
	if cfg.RedisURL != "" {
		rdb, err := openRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		opts.Ledger = mcpgateway.NewRedisLedger(rdb)
	}

	gw, err := mcpgateway.NewGateway(func() *mcp.Server {
		return tools.NewServer(fb, version)
	}, opts)
	if err != nil {
		return err
	}

	log.Info("starting feedbin-mcp",
		zap.String("version", version),
		zap.String("addr", cfg.Addr()),
		zap.String("health", "/health"),
		zap.Bool("metrics", cfg.Metrics),
		zap.Bool("session_ledger", cfg.RedisURL != ""),
		zap.Duration("session_idle_timeout", cfg.SessionIdleTimeout),
	)

	err = gw.ListenAndServe(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errors.Wrap(err, "parse redis url")
	}
	rdb := redis.NewClient(ropts)
	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errors.Wrap(err, "connect to redis")
	}
	return rdb, nil
}
