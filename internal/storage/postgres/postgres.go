// Package postgres stores backtest runs, their trades and equity curves.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"contrarian-lab/internal/storage"
)

// Pool is the connection pool shared by the run, trade and equity stores.
type Pool struct {
	*pgxpool.Pool
}

// NewPool connects to dsn and pings the server before returning.
func NewPool(ctx context.Context, dsn string) (*Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Pool{Pool: pool}, nil
}

// Close closes the connection pool.
func (p *Pool) Close() {
	p.Pool.Close()
}

// inTx runs fn in one transaction. Nothing fn wrote survives an error.
func (p *Pool) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, p.Pool, fn)
}

const (
	pgErrForeignKeyViolation = "23503"
	pgErrUniqueViolation     = "23505"
)

// writeError maps a failed write of what to the storage error taxonomy.
// A unique violation is a row already stored for the run; a foreign key
// violation means the run row itself is missing.
func writeError(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return fmt.Errorf("%w: %s", storage.ErrDuplicateKey, what)
		case pgErrForeignKeyViolation:
			return fmt.Errorf("%w: %s references an unknown run", storage.ErrNotFound, what)
		}
	}
	return fmt.Errorf("insert %s: %w", what, err)
}

func isNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
