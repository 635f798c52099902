package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vikashloomba/feedbin-mcp/pkg/feedbin"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, env := range envBindings {
		t.Setenv(env, "")
		require.NoError(t, os.Unsetenv(env))
	}
}

func TestLoadDefaults(t *testing.T) { //nolint:paralleltest // mutates environment
	clearEnv(t)

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, feedbin.DefaultBaseURL, cfg.Feedbin.BaseURL)
	assert.Equal(t, feedbin.DefaultTimeout, cfg.Feedbin.Timeout)
	assert.Equal(t, feedbin.DefaultMaxRetries, cfg.Feedbin.MaxRetries)
	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 3000, cfg.Port)
	assert.Equal(t, "header", cfg.AuthMode)
	assert.Equal(t, 30*time.Minute, cfg.SessionIdleTimeout)
	assert.True(t, cfg.Metrics)
	assert.Empty(t, cfg.AllowedOrigins)
	assert.Equal(t, "0.0.0.0:3000", cfg.Addr())
}

func TestLoadFromEnvironment(t *testing.T) { //nolint:paralleltest // mutates environment
	clearEnv(t)
	t.Setenv("FEEDBIN_EMAIL", "reader@example.com")
	t.Setenv("FEEDBIN_PASSWORD", "hunter2")
	t.Setenv("FEEDBIN_BASE_URL", "http://localhost:9999/v2")
	t.Setenv("FEEDBIN_TIMEOUT", "5s")
	t.Setenv("FEEDBIN_MAX_RETRIES", "1")
	t.Setenv("MCP_API_KEY", "key")
	t.Setenv("PORT", "8080")
	t.Setenv("HOST", "127.0.0.1")
	t.Setenv("MCP_AUTH_MODE", "header-or-query")
	t.Setenv("MCP_SESSION_IDLE_TIMEOUT", "45m")
	t.Setenv("MCP_ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("MCP_METRICS", "false")
	t.Setenv("MCP_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load(New())
	require.NoError(t, err)
	require.NoError(t, cfg.Validate(ModeServe))

	assert.Equal(t, feedbin.Credentials{Email: "reader@example.com", Password: "hunter2"}, cfg.Credentials())
	assert.Equal(t, "http://localhost:9999/v2", cfg.Feedbin.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Feedbin.Timeout)
	assert.Equal(t, 1, cfg.Feedbin.MaxRetries)
	assert.Equal(t, "key", cfg.APIKey)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr())
	assert.Equal(t, "header-or-query", cfg.AuthMode)
	assert.Equal(t, 45*time.Minute, cfg.SessionIdleTimeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.False(t, cfg.Metrics)
	assert.Equal(t, "redis://localhost:6379/0", cfg.RedisURL)
}

func TestLoadConfigFile(t *testing.T) { //nolint:paralleltest // mutates environment
	clearEnv(t)
	t.Setenv("PORT", "9090")

	path := filepath.Join(t.TempDir(), "feedbin-mcp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feedbin:
  email: file@example.com
  password: from-file
api_key: file-key
port: 4000
allowed_origins:
  - https://app.example
`), 0o600))

	v := New()
	v.Set(KeyConfigFile, path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "file@example.com", cfg.Feedbin.Email)
	assert.Equal(t, "file-key", cfg.APIKey)
	assert.Equal(t, 9090, cfg.Port, "environment overrides the file")
	assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
}

func TestLoadMissingConfigFile(t *testing.T) { //nolint:paralleltest // mutates environment
	clearEnv(t)

	v := New()
	v.Set(KeyConfigFile, filepath.Join(t.TempDir(), "absent.yaml"))
	_, err := Load(v)
	assert.Error(t, err)
}

func TestValidateReportsEveryMissingValue(t *testing.T) {
	t.Parallel()

	cfg := &Config{Port: 3000, AuthMode: "header"}

	err := cfg.Validate(ModeServe)
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr))
	keys := make([]string, 0, len(cfgErr.Missing))
	for _, m := range cfgErr.Missing {
		keys = append(keys, m.Env)
	}
	assert.Equal(t, []string{"FEEDBIN_EMAIL", "FEEDBIN_PASSWORD", "MCP_API_KEY"}, keys)
	assert.Contains(t, err.Error(), "openssl rand -hex 32")

	err = cfg.Validate(ModeStdio)
	require.True(t, errors.As(err, &cfgErr))
	assert.Len(t, cfgErr.Missing, 2, "stdio does not need an API key")
}

func TestValidateRejectsMalformedValues(t *testing.T) {
	t.Parallel()

	base := Config{
		Feedbin:  Feedbin{Email: "a@example.com", Password: "p"},
		APIKey:   "k",
		Port:     3000,
		AuthMode: "header",
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Port = 70000 }},
		{"auth mode", func(c *Config) { c.AuthMode = "cookie" }},
		{"idle timeout", func(c *Config) { c.SessionIdleTimeout = -time.Second }},
		{"retries", func(c *Config) { c.Feedbin.MaxRetries = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate(ModeServe)
			require.Error(t, err)
			var cfgErr *Error
			assert.False(t, errors.As(err, &cfgErr))
		})
	}

	cfg := base
	require.NoError(t, cfg.Validate(ModeServe))
}
