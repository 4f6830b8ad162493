package postgres

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the embedded schema. It is idempotent (every statement is
// guarded with IF NOT EXISTS) so it is safe to run on every process start
// rather than requiring a separate migration step, adapted from the
// teacher's schema evolution runner down to a single forward-only script —
// this project has no need for versioned rollback migrations.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}
