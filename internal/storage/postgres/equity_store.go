package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// EquityStore implements storage.EquityStore using PostgreSQL.
type EquityStore struct {
	pool *Pool
}

// NewEquityStore creates a new EquityStore.
func NewEquityStore(pool *Pool) *EquityStore {
	return &EquityStore{pool: pool}
}

// Compile-time interface check.
var _ storage.EquityStore = (*EquityStore)(nil)

// InsertBulk copies the curve of a run in one COPY. Fails on any duplicate ts.
func (s *EquityStore) InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	rows := make([][]any, len(points))
	for i, p := range points {
		rows[i] = []any{runID, p.Time, p.Value}
	}

	_, err := s.pool.CopyFrom(ctx,
		pgx.Identifier{"equity_points"},
		[]string{"run_id", "ts", "equity"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return writeError("equity points", err)
	}
	return nil
}

// GetByRunID retrieves the curve of a run ordered by ts ASC.
func (s *EquityStore) GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT ts, equity FROM equity_points WHERE run_id = $1 ORDER BY ts ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("get equity points: %w", err)
	}
	defer rows.Close()

	var points []domain.EquityPoint
	for rows.Next() {
		var p domain.EquityPoint
		if err := rows.Scan(&p.Time, &p.Value); err != nil {
			return nil, fmt.Errorf("scan equity row: %w", err)
		}
		p.Time = p.Time.UTC()
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate equity rows: %w", err)
	}
	return points, nil
}
