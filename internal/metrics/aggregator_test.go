package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
	"contrarian-lab/internal/storage/memory"
)

func TestAggregator_AnalyzeRun(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	trades := memory.NewTradeStore()
	eq := memory.NewEquityStore()

	exit := time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC)
	stored := []domain.Trade{
		{TradeID: "a", SignalEvent: domain.SignalEvent{Symbol: "X", EntryTime: exit.AddDate(0, 0, -7), ExitTime: exit}, PnL: 0.01},
		{TradeID: "b", SignalEvent: domain.SignalEvent{Symbol: "Y", EntryTime: exit.AddDate(0, 0, -7), ExitTime: exit}, PnL: -0.005},
	}
	if err := runs.Insert(ctx, &domain.RunRecord{RunID: "run-1", TradeCount: 2}); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	if err := trades.InsertBulk(ctx, "run-1", stored); err != nil {
		t.Fatalf("insert trades: %v", err)
	}
	if err := eq.InsertBulk(ctx, "run-1", []domain.EquityPoint{{Time: exit, Value: 1.005}}); err != nil {
		t.Fatalf("insert equity: %v", err)
	}

	agg := NewAggregator(runs, trades, eq)
	got, err := agg.AnalyzeRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("AnalyzeRun failed: %v", err)
	}
	if got.Diagnostics.Trades != 2 || got.Diagnostics.Wins != 1 || got.Diagnostics.Losses != 1 {
		t.Errorf("unexpected diagnostics %+v", got.Diagnostics)
	}
	if got.Diagnostics.MaxDrawdown != 0 {
		t.Errorf("max drawdown = %v, want 0", got.Diagnostics.MaxDrawdown)
	}
	if len(got.Equity) != 1 {
		t.Errorf("expected 1 equity point, got %d", len(got.Equity))
	}
}

func TestAggregator_UnknownRun(t *testing.T) {
	agg := NewAggregator(memory.NewRunStore(), memory.NewTradeStore(), memory.NewEquityStore())
	_, err := agg.AnalyzeRun(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestAggregator_TradeCountMismatch(t *testing.T) {
	ctx := context.Background()
	runs := memory.NewRunStore()
	if err := runs.Insert(ctx, &domain.RunRecord{RunID: "run-1", TradeCount: 3}); err != nil {
		t.Fatalf("insert run: %v", err)
	}
	agg := NewAggregator(runs, memory.NewTradeStore(), memory.NewEquityStore())
	_, err := agg.AnalyzeRun(ctx, "run-1")
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}
