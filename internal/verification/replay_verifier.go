package verification

import (
	"context"
	"errors"
	"fmt"

	"contrarian-lab/internal/backtest"
	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/idhash"
	"contrarian-lab/internal/storage"
)

// ErrFingerprintMismatch is returned when the run was produced by different
// engine parameters than the ones used for the replay.
var ErrFingerprintMismatch = errors.New("config fingerprint mismatch")

// ReplayVerifier re-runs the engine and compares the result with storage.
type ReplayVerifier struct {
	runStore    storage.RunStore
	tradeStore  storage.TradeStore
	equityStore storage.EquityStore

	engine   *backtest.Engine
	provider backtest.SeriesProvider
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	RunStore    storage.RunStore
	TradeStore  storage.TradeStore
	EquityStore storage.EquityStore
	Engine      *backtest.Engine
	Provider    backtest.SeriesProvider
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	return &ReplayVerifier{
		runStore:    opts.RunStore,
		tradeStore:  opts.TradeStore,
		equityStore: opts.EquityStore,
		engine:      opts.Engine,
		provider:    opts.Provider,
	}
}

// VerifyRun replays runID. It returns storage.ErrNotFound for an unknown run
// and ErrFingerprintMismatch when the engine config differs from the run's.
// Divergences are reported, not returned as errors.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*Report, error) {
	run, err := v.runStore.GetByID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", runID, err)
	}

	fingerprint, err := v.engine.Config().Fingerprint()
	if err != nil {
		return nil, err
	}
	if fingerprint != run.ConfigFingerprint {
		return nil, fmt.Errorf("run %s: %w", runID, ErrFingerprintMismatch)
	}

	stored, err := v.tradeStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades: %w", err)
	}
	storedEquity, err := v.equityStore.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("get equity: %w", err)
	}

	res, err := v.engine.Run(ctx, v.provider)
	if err != nil {
		return nil, fmt.Errorf("replay run %s: %w", runID, err)
	}
	replayed := res.Book.Trades()

	report := &Report{
		RunID:          runID,
		ReplayedRunID:  idhash.ComputeRunID(fingerprint, res.Book.IDs()),
		StoredTrades:   len(stored),
		ReplayedTrades: len(replayed),
		EquityPoints:   len(storedEquity),
		Results:        make([]TradeResult, 0, len(stored)),
	}

	byID := make(map[string]*domain.Trade, len(replayed))
	for i := range replayed {
		byID[replayed[i].TradeID] = &replayed[i]
	}

	seen := make(map[string]bool, len(stored))
	for i := range stored {
		s := &stored[i]
		seen[s.TradeID] = true
		r, ok := byID[s.TradeID]
		if !ok {
			report.Missing = append(report.Missing, s.TradeID)
			report.DivergentTrades++
			continue
		}

		divergences := CompareTrades(s, r)
		report.Results = append(report.Results, TradeResult{
			TradeID:     s.TradeID,
			Match:       len(divergences) == 0,
			Divergences: divergences,
			StoredPnL:   s.PnL,
			ReplayedPnL: r.PnL,
		})
		if len(divergences) == 0 {
			report.MatchedTrades++
		} else {
			report.DivergentTrades++
		}
	}
	for _, id := range res.Book.IDs() {
		if !seen[id] {
			report.Unexpected = append(report.Unexpected, id)
		}
	}

	report.EquityDivergences = CompareEquity(storedEquity, res.Curve.Points)
	return report, nil
}
