// Package postgres opens the pooled database handle used for analytics
// snapshot persistence.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/qmodel/query-modelling-service/pkg/config"
)

// Client exposes the configured *sql.DB. Callers run their own statements;
// the snapshot workload is single-statement inserts and reads, so no
// transaction helper is provided.
type Client struct {
	DB *sql.DB
}

// New opens a connection pool and verifies it with a ping. As with Redis,
// the caller treats failure as "run without snapshots".
func New(cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("opening postgres connection: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}
	return &Client{DB: db}, nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.DB.Close()
}
