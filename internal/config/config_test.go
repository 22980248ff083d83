package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// unsetEnv clears key for the test and restores it afterwards
func unsetEnv(t *testing.T, key string) {
	t.Helper()
	t.Setenv(key, "")
	require.NoError(t, os.Unsetenv(key))
}

func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	oldWd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmpDir))
	defer os.Chdir(oldWd)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, "localhost:3000", cfg.Server.Address())
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, "models", cfg.Models.Dir)
	assert.True(t, cfg.CRUD.Paginate)
	assert.Equal(t, 20, cfg.CRUD.DefaultLimit)
	assert.Equal(t, 100, cfg.CRUD.MaxLimit)
	assert.Equal(t, 500, cfg.CRUD.ExportBatchSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "scaffold.events", cfg.Events.Channel)
	assert.True(t, cfg.Docs.Enabled)
	assert.Equal(t, "/openapi.json", cfg.Docs.Path)
	assert.Empty(t, cfg.Server.CORSOrigins)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 100, cfg.RateLimit.Requests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scaffold.yaml", `
server:
  port: 8080
  host: 0.0.0.0
  api_prefix: /api/v1
  write_timeout: 2m
  cors_origins:
    - https://app.example.com
    - "*.example.org"
database:
  driver: sqlite3
  url: file:test.db
models:
  dir: ./schema
crud:
  paginate: false
  default_limit: 10
  max_limit: 50
log:
  level: debug
  format: console
events:
  redis_addr: localhost:6379
docs:
  enabled: false
rate_limit:
  enabled: true
  requests: 10
  window: 30s
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, "/api/v1", cfg.Server.APIPrefix)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "sqlite3", cfg.Database.Driver)
	assert.Equal(t, "file:test.db", cfg.Database.URL)
	assert.Equal(t, "./schema", cfg.Models.Dir)
	assert.False(t, cfg.CRUD.Paginate)
	assert.Equal(t, 10, cfg.CRUD.DefaultLimit)
	assert.Equal(t, 50, cfg.CRUD.MaxLimit)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "localhost:6379", cfg.Events.RedisAddr)
	assert.False(t, cfg.Docs.Enabled)
	assert.Equal(t, []string{"https://app.example.com", "*.example.org"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 10, cfg.RateLimit.Requests)
	assert.Equal(t, 30*time.Second, cfg.RateLimit.Window)
}

func TestEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "scaffold.yaml", "server:\n  port: 8080\n")

	t.Setenv("SCAFFOLD_SERVER_PORT", "9090")
	t.Setenv("SCAFFOLD_LOG_LEVEL", "warn")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestDotEnv(t *testing.T) {
	unsetEnv(t, "SCAFFOLD_DATABASE_URL")
	unsetEnv(t, "SCAFFOLD_MODELS_DIR")
	t.Setenv("SCAFFOLD_CRUD_MAX_LIMIT", "70")

	dir := t.TempDir()
	path := writeFile(t, dir, "scaffold.yaml", "database:\n  driver: postgres\n")
	writeFile(t, dir, ".env", "SCAFFOLD_DATABASE_URL=postgres://localhost/app\nSCAFFOLD_MODELS_DIR=defs\nSCAFFOLD_CRUD_MAX_LIMIT=30\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/app", cfg.Database.URL)
	assert.Equal(t, "defs", cfg.Models.Dir)
	// variables already set win over .env
	assert.Equal(t, 70, cfg.CRUD.MaxLimit)
}

func TestDatabaseURLFallback(t *testing.T) {
	unsetEnv(t, "SCAFFOLD_DATABASE_URL")
	t.Setenv("DATABASE_URL", "postgres://fallback/db")

	dir := t.TempDir()
	path := writeFile(t, dir, "scaffold.yaml", "server:\n  port: 3001\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres://fallback/db", cfg.Database.URL)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:   ServerConfig{Port: 3000},
			Database: DatabaseConfig{Driver: "pgx"},
			CRUD:     CRUDConfig{DefaultLimit: 20, MaxLimit: 100, ExportBatchSize: 500},
			Log:      LogConfig{Format: "json"},
			Docs:     DocsConfig{Enabled: true, Path: "/openapi.json"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"prefix without slash", func(c *Config) { c.Server.APIPrefix = "api" }, "must start with '/'"},
		{"prefix with trailing slash", func(c *Config) { c.Server.APIPrefix = "/api/" }, "must not end with '/'"},
		{"prefix ok", func(c *Config) { c.Server.APIPrefix = "/api/v1" }, ""},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"zero limit", func(c *Config) { c.CRUD.DefaultLimit = 0 }, "must be positive"},
		{"default above max", func(c *Config) { c.CRUD.DefaultLimit = 200 }, "exceeds crud.max_limit"},
		{"batch size", func(c *Config) { c.CRUD.ExportBatchSize = 0 }, "export_batch_size"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"docs path", func(c *Config) { c.Docs.Path = "openapi.json" }, "docs.path"},
		{"docs path ignored when disabled", func(c *Config) {
			c.Docs.Enabled = false
			c.Docs.Path = ""
		}, ""},
		{"rate limit", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Window: time.Second}
		}, "rate_limit"},
		{"rate limit ignored when disabled", func(c *Config) { c.RateLimit.Requests = -1 }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
