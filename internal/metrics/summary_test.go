package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/equity"
	"contrarian-lab/internal/ledger"
)

var t0 = time.Date(2019, 1, 4, 0, 0, 0, 0, time.UTC)

func closedTrade(id string, exitDays int, pnl float64) domain.Trade {
	exit := t0.AddDate(0, 0, exitDays)
	return domain.Trade{
		TradeID: id,
		SignalEvent: domain.SignalEvent{
			Symbol:     id,
			AssetClass: domain.AssetClassEquity,
			Frequency:  "W",
			EntryTime:  exit.AddDate(0, 0, -7),
			ExitTime:   exit,
		},
		PnL:          pnl,
		SignedReturn: pnl * 2,
	}
}

func summarize(t *testing.T, trades ...domain.Trade) *Summary {
	t.Helper()
	book := ledger.NewTradeBook(trades)
	s, err := Compute(book, equity.Build(book.Trades()))
	if err != nil {
		t.Fatalf("Compute: %v", err)
	}
	return s
}

func TestCompute_ThreePeriods(t *testing.T) {
	s := summarize(t,
		closedTrade("a", 0, 0.01),
		closedTrade("b", 7, -0.02),
		closedTrade("c", 14, 0.03),
	)

	eq := 1.01 * 0.98 * 1.03
	if math.Abs(s.TotalReturn-(eq-1)) > 1e-12 {
		t.Errorf("total return = %v, want %v", s.TotalReturn, eq-1)
	}
	years := 14 / 365.25
	if math.Abs(s.AnnualizedReturn-(math.Pow(eq, 1/years)-1)) > 1e-9 {
		t.Errorf("annualized return = %v", s.AnnualizedReturn)
	}
	ppy := 365.25 / 7
	if math.Abs(s.PeriodsPerYear-ppy) > 1e-12 {
		t.Errorf("periods per year = %v, want %v", s.PeriodsPerYear, ppy)
	}

	mean := (0.01 - 0.02 + 0.03) / 3
	std := math.Sqrt((math.Pow(0.01-mean, 2) + math.Pow(-0.02-mean, 2) + math.Pow(0.03-mean, 2)) / 3)
	vol := std * math.Sqrt(ppy)
	if math.Abs(s.AnnualizedVolatility-vol) > 1e-12 {
		t.Errorf("volatility = %v, want %v", s.AnnualizedVolatility, vol)
	}
	if math.Abs(s.Sharpe-mean*ppy/vol) > 1e-9 {
		t.Errorf("sharpe = %v, want %v", s.Sharpe, mean*ppy/vol)
	}
	if math.Abs(s.MaxDrawdown-(-0.02)) > 1e-12 {
		t.Errorf("max drawdown = %v, want -0.02", s.MaxDrawdown)
	}
	if math.Abs(s.WinRate-2.0/3.0) > 1e-12 || s.Trades != 3 {
		t.Errorf("win rate = %v trades = %d", s.WinRate, s.Trades)
	}
}

func TestCompute_SinglePointUndefined(t *testing.T) {
	s := summarize(t, closedTrade("a", 0, 0.0027))

	if math.Abs(s.TotalReturn-0.0027) > 1e-15 {
		t.Errorf("total return = %v", s.TotalReturn)
	}
	for name, v := range map[string]float64{
		"annualized": s.AnnualizedReturn,
		"volatility": s.AnnualizedVolatility,
		"sharpe":     s.Sharpe,
		"periods/yr": s.PeriodsPerYear,
		"years":      s.Years,
	} {
		if !math.IsNaN(v) {
			t.Errorf("%s = %v, want NaN", name, v)
		}
	}
	if s.MaxDrawdown != 0 {
		t.Errorf("max drawdown = %v, want 0", s.MaxDrawdown)
	}
}

func TestCompute_ZeroVolatilitySharpeUndefined(t *testing.T) {
	s := summarize(t,
		closedTrade("a", 0, 0.25),
		closedTrade("b", 7, 0.25),
		closedTrade("c", 14, 0.25),
	)
	if s.AnnualizedVolatility != 0 {
		t.Errorf("volatility = %v, want 0", s.AnnualizedVolatility)
	}
	if !math.IsNaN(s.Sharpe) {
		t.Errorf("sharpe = %v, want NaN", s.Sharpe)
	}
}

func TestCompute_Empty(t *testing.T) {
	_, err := Compute(ledger.NewTradeBook(nil), equity.Build(nil))
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}

func TestSummaryMetrics_Order(t *testing.T) {
	s := summarize(t, closedTrade("a", 0, 0.01))
	want := []string{
		"Total Return",
		"Annualized Return",
		"Annualized Volatility",
		"Sharpe (approx)",
		"Max Drawdown",
		"Win Rate",
		"Trades",
	}
	got := s.Metrics()
	if len(got) != len(want) {
		t.Fatalf("got %d metrics, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Metric != w {
			t.Errorf("metric %d = %q, want %q", i, got[i].Metric, w)
		}
	}
	if got[6].Value != 1 {
		t.Errorf("Trades = %v, want 1", got[6].Value)
	}
}

func TestEstimatePeriodsPerYear(t *testing.T) {
	times := []time.Time{
		t0,
		t0.AddDate(0, 0, 7),
		t0.AddDate(0, 0, 14),
		t0.AddDate(0, 0, 14).Add(6 * time.Hour), // zero whole days, ignored
		t0.AddDate(0, 0, 28),
	}
	if got := EstimatePeriodsPerYear(times); math.Abs(got-365.25/7) > 1e-12 {
		t.Errorf("periods per year = %v, want %v", got, 365.25/7)
	}
	if !math.IsNaN(EstimatePeriodsPerYear(times[:2])) {
		t.Error("fewer than 3 timestamps must be NaN")
	}
}
