// Package db provides database connection handling for the events API.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // postgres driver
)

// Pool settings sized for a single API instance behind pgbouncer-less
// Postgres. Idle connections are recycled so long-lived instances don't pin
// server slots.
const (
	maxOpenConns    = 10
	maxIdleConns    = 2
	connMaxIdleTime = 30 * time.Second
)

// Open connects to Postgres, configures the pool, and verifies the connection
// with a ping before returning.
func Open(ctx context.Context, databaseURL string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(maxOpenConns)
	conn.SetMaxIdleConns(maxIdleConns)
	conn.SetConnMaxIdleTime(connMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}
