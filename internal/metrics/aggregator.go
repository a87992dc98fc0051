package metrics

import (
	"context"
	"fmt"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// Aggregator computes diagnostics for persisted runs.
type Aggregator struct {
	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityStore
}

// NewAggregator creates a new run aggregator.
func NewAggregator(runStore storage.RunStore, tradeStore storage.TradeStore, equityStore storage.EquityStore) *Aggregator {
	return &Aggregator{
		runStore:    runStore,
		tradeStore:  tradeStore,
		equityStore: equityStore,
	}
}

// RunAnalysis is a stored run with its diagnostics.
type RunAnalysis struct {
	Run         *domain.RunRecord
	Trades      []domain.Trade
	Equity      []domain.EquityPoint
	Diagnostics *Diagnostics
}

// AnalyzeRun loads a run, its trades and its equity curve, then computes
// diagnostics. Returns storage.ErrNotFound for an unknown run and
// domain.ErrEmptyResult for a run without trades.
func (a *Aggregator) AnalyzeRun(ctx context.Context, runID string) (*RunAnalysis, error) {
	run, err := a.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	trades, err := a.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	if len(trades) != run.TradeCount {
		return nil, fmt.Errorf("run %s: %w: stored %d trades, run record says %d",
			runID, storage.ErrInvalidInput, len(trades), run.TradeCount)
	}

	points, err := a.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get equity: %w", err)
	}

	diag, err := Analyze(trades, points)
	if err != nil {
		return nil, err
	}

	return &RunAnalysis{
		Run:         run,
		Trades:      trades,
		Equity:      points,
		Diagnostics: diag,
	}, nil
}
