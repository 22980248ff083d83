// Package db opens the database behind the generated resources.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers
const (
	DriverPgx      = "pgx"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

// Config holds the connection and pool settings
type Config struct {
	Driver string
	URL    string

	// MaxOpenConns is the maximum number of open connections to the database
	MaxOpenConns int

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// ConnMaxLifetime is the maximum amount of time a connection may be reused
	ConnMaxLifetime time.Duration

	// ConnMaxIdleTime is the maximum amount of time a connection may be idle
	ConnMaxIdleTime time.Duration

	// PingTimeout bounds the connectivity check, default 5s
	PingTimeout time.Duration
}

// Placeholder returns the bind parameter format of driver
func Placeholder(driver string) (sq.PlaceholderFormat, error) {
	switch driver {
	case DriverPgx, DriverPostgres:
		return sq.Dollar, nil
	case DriverSQLite:
		return sq.Question, nil
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", driver)
	}
}

// Connect prepares the pool without touching the database. Connections are
// made on first use.
func Connect(cfg Config) (*sql.DB, error) {
	if _, err := Placeholder(cfg.Driver); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, fmt.Errorf("db: database URL is required")
	}

	db, err := sql.Open(cfg.Driver, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	configurePool(db, cfg)
	return db, nil
}

// Open connects, configures the pool and pings the database
func Open(ctx context.Context, cfg Config) (*sql.DB, error) {
	db, err := Connect(cfg)
	if err != nil {
		return nil, err
	}

	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

// configurePool applies the non-zero pool settings
func configurePool(db *sql.DB, cfg Config) {
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
}
