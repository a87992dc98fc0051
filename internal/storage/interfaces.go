package storage

import (
	"context"
	"time"

	"contrarian-lab/internal/domain"
)

// PriceSeriesStore provides access to price_series storage.
// Series are keyed by (dataset, symbol); observations by timestamp.
type PriceSeriesStore interface {
	// InsertSeries appends all observations of s under dataset.
	// Returns ErrDuplicateKey if any (dataset, symbol, ts) already exists.
	InsertSeries(ctx context.Context, dataset string, s *domain.PriceSeries) error

	// GetSeries retrieves the full series for a symbol, ordered by ts ASC.
	// Returns ErrNotFound if the symbol has no observations.
	GetSeries(ctx context.Context, dataset, symbol string) (*domain.PriceSeries, error)

	// GetByTimeRange retrieves observations within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, dataset, symbol string, start, end time.Time) (*domain.PriceSeries, error)

	// ListSymbols returns all symbols of a dataset in ascending order.
	ListSymbols(ctx context.Context, dataset string) ([]string, error)
}

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a run with its summary metrics. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// List returns all runs ordered by created_at ASC, run_id ASC.
	List(ctx context.Context) ([]*domain.RunRecord, error)
}

// TradeStore provides access to backtest_trades storage.
type TradeStore interface {
	// InsertBulk adds all trades of a run atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error

	// GetByRunID retrieves trades of a run ordered by entry_time, symbol, freq_label, signal_time.
	GetByRunID(ctx context.Context, runID string) ([]domain.Trade, error)
}

// EquityStore provides access to equity_points storage.
type EquityStore interface {
	// InsertBulk adds the equity curve of a run atomically.
	InsertBulk(ctx context.Context, runID string, points []domain.EquityPoint) error

	// GetByRunID retrieves the curve of a run ordered by ts ASC.
	GetByRunID(ctx context.Context, runID string) ([]domain.EquityPoint, error)
}
