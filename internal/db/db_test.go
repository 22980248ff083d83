package db

import (
	"context"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder(t *testing.T) {
	tests := []struct {
		driver string
		want   sq.PlaceholderFormat
	}{
		{DriverPgx, sq.Dollar},
		{DriverPostgres, sq.Dollar},
		{DriverSQLite, sq.Question},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			got, err := Placeholder(tt.driver)
			require.NoError(t, err)

			sql, err := got.ReplacePlaceholders("a = ? AND b = ?")
			require.NoError(t, err)
			want, _ := tt.want.ReplacePlaceholders("a = ? AND b = ?")
			assert.Equal(t, want, sql)
		})
	}

	_, err := Placeholder("mysql")
	assert.Error(t, err)
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), Config{
		Driver:          DriverSQLite,
		URL:             ":memory:",
		MaxOpenConns:    3,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 3, db.Stats().MaxOpenConnections)

	var one int
	require.NoError(t, db.QueryRow("SELECT 1").Scan(&one))
	assert.Equal(t, 1, one)
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle", URL: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported driver")

	_, err = Open(context.Background(), Config{Driver: DriverPgx})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "URL is required")
}

func TestOpenPingFailure(t *testing.T) {
	_, err := Open(context.Background(), Config{
		Driver:      DriverPgx,
		URL:         "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1",
		PingTimeout: 2 * time.Second,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to ping database")
}

func TestConnectDoesNotDial(t *testing.T) {
	db, err := Connect(Config{
		Driver: DriverPgx,
		URL:    "postgres://nobody@127.0.0.1:1/none?sslmode=disable",
	})
	require.NoError(t, err)
	defer db.Close()

	assert.Equal(t, 0, db.Stats().OpenConnections)
}
