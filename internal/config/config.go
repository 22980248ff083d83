// Package config loads service configuration from scaffold.yaml, an optional
// .env file and SCAFFOLD_* environment variables, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. SCAFFOLD_SERVER_PORT
const EnvPrefix = "SCAFFOLD"

// Config represents the service configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Models    ModelsConfig    `mapstructure:"models"`
	CRUD      CRUDConfig      `mapstructure:"crud"`
	Log       LogConfig       `mapstructure:"log"`
	Events    EventsConfig    `mapstructure:"events"`
	Docs      DocsConfig      `mapstructure:"docs"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	APIPrefix       string        `mapstructure:"api_prefix"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	// CORSOrigins enables CORS for the listed origins; "*.example.com"
	// matches subdomains
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// Pprof mounts the runtime profiles under /debug/pprof
	Pprof           bool          `mapstructure:"pprof"`
}

// Address returns host:port
func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	// Driver is pgx, postgres or sqlite3
	Driver          string        `mapstructure:"driver"`
	URL             string        `mapstructure:"url"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ModelsConfig points at the YAML model definitions
type ModelsConfig struct {
	Dir string `mapstructure:"dir"`
}

// CRUDConfig holds the defaults applied to every mounted resource
type CRUDConfig struct {
	Paginate        bool `mapstructure:"paginate"`
	DefaultLimit    int  `mapstructure:"default_limit"`
	MaxLimit        int  `mapstructure:"max_limit"`
	ExportBatchSize int  `mapstructure:"export_batch_size"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// EventsConfig configures lifecycle event delivery. Without a Redis address
// events stay in process.
type EventsConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	Channel   string `mapstructure:"channel"`
	Workers   int    `mapstructure:"workers"`
}

// DocsConfig configures the OpenAPI endpoint
type DocsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Title   string `mapstructure:"title"`
	Version string `mapstructure:"version"`
}

// RateLimitConfig limits requests per client IP. With a Redis address the
// window is shared between instances, otherwise each instance keeps its own
// token buckets.
type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Requests  int           `mapstructure:"requests"`
	Window    time.Duration `mapstructure:"window"`
	RedisAddr string        `mapstructure:"redis_addr"`
}

// Supported database drivers
var drivers = map[string]bool{"pgx": true, "postgres": true, "sqlite3": true}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.api_prefix", "")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_size", 10<<20)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.pprof", false)

	v.SetDefault("database.driver", "pgx")
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)

	v.SetDefault("models.dir", "models")

	v.SetDefault("crud.paginate", true)
	v.SetDefault("crud.default_limit", 20)
	v.SetDefault("crud.max_limit", 100)
	v.SetDefault("crud.export_batch_size", 500)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("events.redis_addr", "")
	v.SetDefault("events.channel", "scaffold.events")
	v.SetDefault("events.workers", 4)

	v.SetDefault("docs.enabled", true)
	v.SetDefault("docs.path", "/openapi.json")
	v.SetDefault("docs.title", "Scaffold API")
	v.SetDefault("docs.version", "1.0.0")

	v.SetDefault("rate_limit.enabled", false)
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.window", time.Minute)
	v.SetDefault("rate_limit.redis_addr", "")
}

// Load reads configuration. With an empty path scaffold.yaml (or .yml) is
// looked up in the working directory and may be absent; an explicit path
// must exist. A .env file next to the configuration is loaded first and
// never overrides variables already set.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	envDir := "."
	if path != "" {
		v.SetConfigFile(path)
		envDir = filepath.Dir(path)
	} else {
		v.SetConfigName("scaffold")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := godotenv.Load(filepath.Join(envDir, ".env")); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Database.URL == "" {
		config.Database.URL = os.Getenv("DATABASE_URL")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail late at startup
func (c *Config) Validate() error {
	if p := c.Server.APIPrefix; p != "" {
		if !strings.HasPrefix(p, "/") {
			return fmt.Errorf("server.api_prefix must start with '/', got: %s", p)
		}
		if strings.HasSuffix(p, "/") {
			return fmt.Errorf("server.api_prefix must not end with '/', got: %s", p)
		}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if !drivers[c.Database.Driver] {
		return fmt.Errorf("database.driver must be one of pgx, postgres, sqlite3, got: %s", c.Database.Driver)
	}
	if c.CRUD.DefaultLimit <= 0 || c.CRUD.MaxLimit <= 0 {
		return fmt.Errorf("crud.default_limit and crud.max_limit must be positive")
	}
	if c.CRUD.DefaultLimit > c.CRUD.MaxLimit {
		return fmt.Errorf("crud.default_limit (%d) exceeds crud.max_limit (%d)", c.CRUD.DefaultLimit, c.CRUD.MaxLimit)
	}
	if c.CRUD.ExportBatchSize <= 0 {
		return fmt.Errorf("crud.export_batch_size must be positive")
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format must be json or console, got: %s", c.Log.Format)
	}
	if c.Docs.Enabled && !strings.HasPrefix(c.Docs.Path, "/") {
		return fmt.Errorf("docs.path must start with '/', got: %s", c.Docs.Path)
	}
	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
	}
	return nil
}
