// Package config loads feedbin-mcp settings from flags, environment variables
// and an optional config file through viper.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
	mcpgateway "github.com/vikashloomba/feedbin-mcp/pkg/mcp-gateway"
)

// Keys understood by Load. Flags are bound to the same names.
const (
	KeyFeedbinEmail       = "feedbin.email"
	KeyFeedbinPassword    = "feedbin.password"
	KeyFeedbinBaseURL     = "feedbin.base_url"
	KeyFeedbinTimeout     = "feedbin.timeout"
	KeyFeedbinMaxRetries  = "feedbin.max_retries"
	KeyAPIKey             = "api_key"
	KeyHost               = "host"
	KeyPort               = "port"
	KeyAuthMode           = "auth_mode"
	KeySessionIdleTimeout = "session_idle_timeout"
	KeyAllowedOrigins     = "allowed_origins"
	KeyMetrics            = "metrics"
	KeyRedisURL           = "redis_url"
	KeyDebug              = "debug"
	KeyConfigFile         = "config"
)

var envBindings = map[string]string{
	KeyFeedbinEmail:       "FEEDBIN_EMAIL",
	KeyFeedbinPassword:    "FEEDBIN_PASSWORD",
	KeyFeedbinBaseURL:     "FEEDBIN_BASE_URL",
	KeyFeedbinTimeout:     "FEEDBIN_TIMEOUT",
	KeyFeedbinMaxRetries:  "FEEDBIN_MAX_RETRIES",
	KeyAPIKey:             "MCP_API_KEY",
	KeyHost:               "HOST",
	KeyPort:               "PORT",
	KeyAuthMode:           "MCP_AUTH_MODE",
	KeySessionIdleTimeout: "MCP_SESSION_IDLE_TIMEOUT",
	KeyAllowedOrigins:     "MCP_ALLOWED_ORIGINS",
	KeyMetrics:            "MCP_METRICS",
	KeyRedisURL:           "MCP_REDIS_URL",
}

// Feedbin holds the outbound API settings.
type Feedbin struct {
	Email      string        `mapstructure:"email"`
	Password   string        `mapstructure:"password"`
	BaseURL    string        `mapstructure:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries"`
}

// Config is the fully resolved process configuration.
type Config struct {
	Feedbin            Feedbin       `mapstructure:"feedbin"`
	APIKey             string        `mapstructure:"api_key"`
	Host               string        `mapstructure:"host"`
	Port               int           `mapstructure:"port"`
	AuthMode           string        `mapstructure:"auth_mode"`
	SessionIdleTimeout time.Duration `mapstructure:"session_idle_timeout"`
	AllowedOrigins     []string      `mapstructure:"allowed_origins"`
	Metrics            bool          `mapstructure:"metrics"`
	RedisURL           string        `mapstructure:"redis_url"`
	Debug              bool          `mapstructure:"debug"`
}

// New returns a viper instance with defaults and environment bindings
// installed. Callers bind their flags to it before Load.
func New() *viper.Viper {
	v := viper.New()
	v.SetDefault(KeyFeedbinBaseURL, feedbin.DefaultBaseURL)
	v.SetDefault(KeyFeedbinTimeout, feedbin.DefaultTimeout)
	v.SetDefault(KeyFeedbinMaxRetries, feedbin.DefaultMaxRetries)
	v.SetDefault(KeyHost, "0.0.0.0")
	v.SetDefault(KeyPort, 3000)
	v.SetDefault(KeyAuthMode, string(mcpgateway.AuthModeHeader))
	v.SetDefault(KeySessionIdleTimeout, 30*time.Minute)
	v.SetDefault(KeyMetrics, true)
	for key, env := range envBindings {
		// BindEnv only fails when called without a key.
		_ = v.BindEnv(key, env)
	}
	return v
}

// Load reads the optional config file named by the "config" key and decodes
// every setting. It does not check for required values; see Validate.
func Load(v *viper.Viper) (*Config, error) {
	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode configuration")
	}
	cfg.AllowedOrigins = splitList(cfg.AllowedOrigins)
	return &cfg, nil
}

// Mode names the entry point a configuration is validated for.
type Mode int

const (
	// ModeStdio needs only Feedbin credentials.
	ModeStdio Mode = iota
	// ModeServe also needs the inbound API key.
	ModeServe
)

// Validate reports every missing or malformed setting at once. Missing
// required values produce an *Error.
func (c *Config) Validate(mode Mode) error {
	var missing []Missing
	if c.Feedbin.Email == "" {
		missing = append(missing, Missing{Key: KeyFeedbinEmail, Env: envBindings[KeyFeedbinEmail], Hint: "the email address of your Feedbin account"})
	}
	if c.Feedbin.Password == "" {
		missing = append(missing, Missing{Key: KeyFeedbinPassword, Env: envBindings[KeyFeedbinPassword], Hint: "the password of your Feedbin account"})
	}
	if mode == ModeServe && c.APIKey == "" {
		missing = append(missing, Missing{Key: KeyAPIKey, Env: envBindings[KeyAPIKey], Hint: "a secret clients send as 'Authorization: Bearer <key>'; generate one with: openssl rand -hex 32"})
	}
	if len(missing) > 0 {
		return &Error{Missing: missing}
	}
	if mode == ModeServe {
		if c.Port <= 0 || c.Port > 65535 {
			return errors.Newf("invalid port %d", c.Port)
		}
		if _, err := mcpgateway.ParseAuthMode(c.AuthMode); err != nil {
			return err
		}
		if c.SessionIdleTimeout < 0 {
			return errors.Newf("invalid session idle timeout %s", c.SessionIdleTimeout)
		}
	}
	if c.Feedbin.MaxRetries < 0 {
		return errors.Newf("invalid Feedbin max retries %d", c.Feedbin.MaxRetries)
	}
	return nil
}

// Credentials returns the Feedbin account credentials.
func (c *Config) Credentials() feedbin.Credentials {
	return feedbin.Credentials{Email: c.Feedbin.Email, Password: c.Feedbin.Password}
}

// Addr returns the HTTP listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Missing describes one absent required setting.
type Missing struct {
	Key  string
	Env  string
	Hint string
}

// Error lists required settings that were not provided.
type Error struct {
	Missing []Missing
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("missing required configuration:")
	for _, m := range e.Missing {
		fmt.Fprintf(&b, "\n  %s (%s): %s", m.Env, m.Key, m.Hint)
	}
	return b.String()
}

// splitList accepts both repeated values and comma separated lists.
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
