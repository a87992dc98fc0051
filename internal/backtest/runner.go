package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/idhash"
	"contrarian-lab/internal/storage"
)

// Runner executes an engine against a provider and optionally persists the
// run, its trades and its equity curve.
type Runner struct {
	engine   *Engine
	provider SeriesProvider

	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityStore

	clock  func() time.Time
	logger zerolog.Logger
}

// NewRunner creates a runner without persistence.
func NewRunner(engine *Engine, provider SeriesProvider) *Runner {
	return &Runner{
		engine:   engine,
		provider: provider,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   zerolog.Nop(),
	}
}

// WithStores enables persistence. All three stores are required.
func (r *Runner) WithStores(runs storage.RunStore, trades storage.TradeStore, eq storage.EquityStore) *Runner {
	r.runStore = runs
	r.tradeStore = trades
	r.equityStore = eq
	return r
}

// WithClock sets the clock used for RunRecord.CreatedAt.
func (r *Runner) WithClock(clock func() time.Time) *Runner {
	r.clock = clock
	return r
}

// WithLogger sets the logger.
func (r *Runner) WithLogger(logger zerolog.Logger) *Runner {
	r.logger = logger
	return r
}

// Output is a finished run.
type Output struct {
	Result    *Result
	Run       *domain.RunRecord
	Persisted bool // true when this call wrote any row
}

// Run executes the backtest and persists it when stores are configured.
// Identical inputs give the same run id. Persisting a complete existing run
// is a no-op; a run missing its trades or equity is completed.
func (r *Runner) Run(ctx context.Context) (*Output, error) {
	res, err := r.engine.Run(ctx, r.provider)
	if err != nil {
		return nil, err
	}

	run, err := r.record(res)
	if err != nil {
		return nil, err
	}
	out := &Output{Result: res, Run: run}

	if r.runStore == nil || r.tradeStore == nil || r.equityStore == nil {
		return out, nil
	}

	existed := false
	if err := r.runStore.Insert(ctx, run); err != nil {
		if !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("persist run: %w", err)
		}
		existed = true
	}

	// The run row commits first. A run left without trades or equity by an
	// earlier failure is completed here instead of being reported as done.
	wroteTrades, err := r.persistTrades(ctx, run.RunID, res.Book.Trades(), existed)
	if err != nil {
		return nil, err
	}
	wroteEquity, err := r.persistEquity(ctx, run.RunID, res.Curve.Points, existed)
	if err != nil {
		return nil, err
	}
	out.Persisted = !existed || wroteTrades || wroteEquity

	switch {
	case !out.Persisted:
		r.logger.Info().Str("run_id", run.RunID).Msg("run already persisted")
	case existed:
		r.logger.Warn().
			Str("run_id", run.RunID).
			Bool("trades", wroteTrades).
			Bool("equity", wroteEquity).
			Msg("completed partially persisted run")
	default:
		r.logger.Info().
			Str("run_id", run.RunID).
			Int("trades", run.TradeCount).
			Msg("run persisted")
	}
	return out, nil
}

// persistTrades writes trades unless an existing run already holds all of
// them. It reports whether anything was written.
func (r *Runner) persistTrades(ctx context.Context, runID string, trades []domain.Trade, existed bool) (bool, error) {
	if existed {
		stored, err := r.tradeStore.GetByRunID(ctx, runID)
		if err != nil {
			return false, fmt.Errorf("load persisted trades: %w", err)
		}
		switch len(stored) {
		case len(trades):
			return false, nil
		case 0:
		default:
			return false, fmt.Errorf("%w: run %s has %d trades stored, %d expected",
				ErrPersistedRunMismatch, runID, len(stored), len(trades))
		}
	}
	if err := r.tradeStore.InsertBulk(ctx, runID, trades); err != nil {
		return false, fmt.Errorf("persist trades: %w", err)
	}
	return true, nil
}

// persistEquity is persistTrades for the equity curve.
func (r *Runner) persistEquity(ctx context.Context, runID string, points []domain.EquityPoint, existed bool) (bool, error) {
	if existed {
		stored, err := r.equityStore.GetByRunID(ctx, runID)
		if err != nil {
			return false, fmt.Errorf("load persisted equity: %w", err)
		}
		switch len(stored) {
		case len(points):
			return false, nil
		case 0:
		default:
			return false, fmt.Errorf("%w: run %s has %d equity points stored, %d expected",
				ErrPersistedRunMismatch, runID, len(stored), len(points))
		}
	}
	if err := r.equityStore.InsertBulk(ctx, runID, points); err != nil {
		return false, fmt.Errorf("persist equity: %w", err)
	}
	return true, nil
}

// record builds the run record of res.
func (r *Runner) record(res *Result) (*domain.RunRecord, error) {
	fingerprint, err := r.engine.Config().Fingerprint()
	if err != nil {
		return nil, err
	}

	run := &domain.RunRecord{
		RunID:             idhash.ComputeRunID(fingerprint, res.Book.IDs()),
		ConfigFingerprint: fingerprint,
		TradeCount:        res.Book.Len(),
		CreatedAt:         r.clock().UTC(),
		Summary:           res.Summary.Metrics(),
	}
	if n := len(res.Curve.Points); n > 0 {
		run.FirstExit = res.Curve.Points[0].Time
		run.LastExit = res.Curve.Points[n-1].Time
	}
	return run, nil
}
