// Package postgres builds instrumented pgx connection pools.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/exaring/otelpgx"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultSlowQuery is the duration above which successful queries are logged.
const DefaultSlowQuery = 250 * time.Millisecond

// PoolOptions tunes NewPool. Zero values keep pgx defaults.
type PoolOptions struct {
	MaxConns  int32
	SlowQuery time.Duration
}

// NewPool connects to PostgreSQL with OpenTelemetry spans and query logging
// on every statement, and verifies the connection.
func NewPool(ctx context.Context, databaseURL string, opts PoolOptions) (*pgxpool.Pool, error) {
	pcfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if opts.MaxConns > 0 {
		pcfg.MaxConns = opts.MaxConns
	}
	pcfg.ConnConfig.Tracer = wrapQueryTracer(otelpgx.NewTracer(), opts.SlowQuery)

	pool, err := pgxpool.NewWithConfig(ctx, pcfg)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.NewWithConfig: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return pool, nil
}
