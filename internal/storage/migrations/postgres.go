package migrations

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contrarian-lab/internal/storage/postgres"
)

// RunPostgresMigrations creates the run tables. Every script uses
// IF NOT EXISTS, so running it against an existing schema is a no-op.
// All scripts apply in one transaction: a failing script leaves no table
// behind for trades to reference.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	files, err := scripts(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool.Pool, func(tx pgx.Tx) error {
		for _, f := range files {
			// pgx sends the file as one simple-protocol query, so a
			// script may hold several statements.
			if _, err := tx.Exec(ctx, f.sql); err != nil {
				return fmt.Errorf("apply migration %s: %w", f.name, err)
			}
		}
		return nil
	})
}
