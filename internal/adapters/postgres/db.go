// Package postgres stores recorded routing payloads in PostgreSQL.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// payloadPoolSize bounds the pool: the sink issues a single upsert per
	// route request and the debug endpoint a single read.
	payloadPoolSize = 4

	connectTimeout = 5 * time.Second
)

// DB wraps the pgx pool shared by the payload repository and readiness probe.
type DB struct {
	Pool *pgxpool.Pool
}

// New opens a pool against dsn, tags connections with appName and fails
// fast when the server is unreachable.
func New(ctx context.Context, dsn, appName string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}
	cfg.MaxConns = payloadPoolSize
	cfg.ConnConfig.ConnectTimeout = connectTimeout
	if appName != "" {
		cfg.ConnConfig.RuntimeParams["application_name"] = appName
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &DB{Pool: pool}, nil
}

// Ping checks connectivity for the readiness probe.
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}

// Close releases pool resources.
func (db *DB) Close() {
	db.Pool.Close()
}
