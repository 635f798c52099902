package mcpgateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Options configure a Gateway instance.
type Options struct {
	// Name is reported by the health endpoint. Defaults to "feedbin-mcp".
	Name string
	// Addr controls the listen address used by ListenAndServe. Defaults to ":3000".
	Addr string
	// Path mounts the protocol endpoint. Defaults to "/mcp".
	Path string
	// HealthPath serves the unauthenticated liveness probe. Defaults to "/health".
	HealthPath string
	// MetricsPath serves Prometheus metrics when Metrics is set. Defaults to "/metrics".
	MetricsPath string
	// APIKey is the bearer secret every protocol request must present. Required.
	APIKey string
	// AuthMode selects where the bearer secret may be carried. Defaults to AuthModeHeader.
	AuthMode AuthMode
	// SessionIdleTimeout closes sessions that saw no traffic for this long.
	// Zero disables idle reaping.
	SessionIdleTimeout time.Duration
	// MaxBodyBytes bounds every POST body; longer bodies get 413. Defaults to 4 MiB.
	MaxBodyBytes int64
	// AllowedOrigins enables CORS for the listed origins ("*" allows any).
	AllowedOrigins []string
	// Metrics registers gateway collectors with this registry and serves it on
	// MetricsPath. Nil disables metrics.
	Metrics *prometheus.Registry
	// Ledger mirrors live session ids to an external store. Optional.
	Ledger Ledger
	// LedgerRefresh is how often live sessions are re-recorded so their ledger
	// entries outlast the store's TTL. Defaults to 1h.
	LedgerRefresh time.Duration
	// Logger receives structured diagnostics. Defaults to a no-op logger.
	Logger *zap.Logger
	// ShutdownTimeout bounds graceful shutdown in ListenAndServe. Defaults to 15s.
	ShutdownTimeout time.Duration
}

func (o *Options) withDefaults() Options {
	if o == nil {
		o = &Options{}
	}
	opts := *o
	if opts.Name == "" {
		opts.Name = "feedbin-mcp"
	}
	if opts.Addr == "" {
		opts.Addr = ":3000"
	}
	if opts.Path == "" {
		opts.Path = "/mcp"
	}
	if opts.HealthPath == "" {
		opts.HealthPath = "/health"
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.AuthMode == "" {
		opts.AuthMode = AuthModeHeader
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 4 << 20
	}
	if opts.Ledger == nil {
		opts.Ledger = nopLedger{}
	}
	if opts.LedgerRefresh <= 0 {
		opts.LedgerRefresh = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 15 * time.Second
	}
	return opts
}
