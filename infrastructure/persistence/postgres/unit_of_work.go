package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UnitOfWork begins transactions against a process-wide pool, implementing
// the application layer's ports.UnitOfWork. It is the one piece of the
// persistence package application/orchestrator talks to directly alongside
// the repositories, rather than touching *pgxpool.Pool itself.
type UnitOfWork struct {
	Pool *pgxpool.Pool
}

// NewUnitOfWork wraps a pool.
func NewUnitOfWork(pool *pgxpool.Pool) *UnitOfWork {
	return &UnitOfWork{Pool: pool}
}

// Begin starts a new transaction, at Serializable isolation when the caller
// requests it (undo/redo per spec §5), ReadCommitted otherwise.
func (u *UnitOfWork) Begin(ctx context.Context, serializable bool) (pgx.Tx, error) {
	iso := pgx.ReadCommitted
	if serializable {
		iso = pgx.Serializable
	}
	return BeginTx(ctx, u.Pool, iso)
}
