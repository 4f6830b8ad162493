package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is satisfied by both *pgxpool.Pool and pgx.Tx. Every repository
// method accepts one, so the "*InClient" transaction-bound variant the spec
// asks for is simply "pass the caller's transaction instead of the pool".
type Querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

var (
	_ Querier = (*pgxpool.Pool)(nil)
	_ Querier = (pgx.Tx)(nil)
)

// BeginTx starts a new transaction at the given isolation level. Callers
// must Commit or Rollback it; the orchestrator's operation template always
// defers a Rollback immediately after Begin so failure at any stage leaves
// no partial state observable.
func BeginTx(ctx context.Context, pool *pgxpool.Pool, isoLevel pgx.TxIsoLevel) (pgx.Tx, error) {
	return pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: isoLevel})
}
