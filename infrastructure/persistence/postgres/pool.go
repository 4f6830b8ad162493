// Package postgres is the storage adapter: it owns the pooled connection,
// transaction scoping, and parameter binding for the relational store, and
// hosts the repositories that sit on top of it. Adapted from the teacher's
// infrastructure/persistence/dynamodb package, swapped to
// github.com/jackc/pgx/v5 — the relational driver grounded on the one pack
// repo (evalgo-org-eve) that depends on a Postgres client.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"workitems/infrastructure/config"
)

// NewPool opens a process-wide connection pool. It is initialized once at
// startup and its lifecycle is bounded by process start/stop, per the
// concurrency model's "process-wide database connection pool" requirement.
func NewPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	poolCfg.MaxConns = cfg.DBMaxConns
	poolCfg.MinConns = cfg.DBMinConns
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}
