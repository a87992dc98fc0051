package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

// Insert adds a run and its metrics in one transaction.
// Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO backtest_runs (
				run_id, config_fingerprint, trade_count, first_exit, last_exit, created_at
			) VALUES ($1, $2, $3, $4, $5, $6)
		`, r.RunID, r.ConfigFingerprint, r.TradeCount, r.FirstExit, r.LastExit, r.CreatedAt)
		if err != nil {
			return writeError("run "+r.RunID, err)
		}

		batch := &pgx.Batch{}
		for i, m := range r.Summary {
			batch.Queue(`
				INSERT INTO run_metrics (run_id, ordinal, metric, value) VALUES ($1, $2, $3, $4)
			`, r.RunID, i, m.Metric, m.Value)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return writeError("run metrics", err)
		}
		return nil
	})
}

// GetByID retrieves a run with its metrics. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT run_id, config_fingerprint, trade_count, first_exit, last_exit, created_at
		FROM backtest_runs
		WHERE run_id = $1
	`, runID)

	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get run by id: %w", err)
	}

	if r.Summary, err = s.metrics(ctx, runID); err != nil {
		return nil, err
	}
	return r, nil
}

// List returns all runs ordered by created_at ASC, run_id ASC.
func (s *RunStore) List(ctx context.Context) ([]*domain.RunRecord, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT run_id, config_fingerprint, trade_count, first_exit, last_exit, created_at
		FROM backtest_runs
		ORDER BY created_at ASC, run_id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for _, r := range runs {
		if r.Summary, err = s.metrics(ctx, r.RunID); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

func (s *RunStore) metrics(ctx context.Context, runID string) ([]domain.MetricValue, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT metric, value FROM run_metrics WHERE run_id = $1 ORDER BY ordinal ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get run metrics: %w", err)
	}
	defer rows.Close()

	var out []domain.MetricValue
	for rows.Next() {
		var m domain.MetricValue
		if err := rows.Scan(&m.Metric, &m.Value); err != nil {
			return nil, fmt.Errorf("scan run metric row: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run metrics: %w", err)
	}
	return out, nil
}

// scanRun scans a single row into a RunRecord without metrics.
func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	if err := row.Scan(&r.RunID, &r.ConfigFingerprint, &r.TradeCount, &r.FirstExit, &r.LastExit, &r.CreatedAt); err != nil {
		return nil, err
	}
	r.FirstExit = r.FirstExit.UTC()
	r.LastExit = r.LastExit.UTC()
	r.CreatedAt = r.CreatedAt.UTC()
	return &r, nil
}
