package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/signal"
)

var base = time.Date(2020, 1, 3, 0, 0, 0, 0, time.UTC)

// staticProvider serves fixed series per source.
type staticProvider map[string][]*domain.PriceSeries

func (p staticProvider) Load(_ context.Context, source string) ([]*domain.PriceSeries, error) {
	series, ok := p[source]
	if !ok {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	return series, nil
}

func weekly(symbol string, class domain.AssetClass, prices ...float64) *domain.PriceSeries {
	s := &domain.PriceSeries{Symbol: symbol, AssetClass: class}
	for i, p := range prices {
		s.Points = append(s.Points, domain.PricePoint{Time: base.AddDate(0, 0, 7*i), Price: p})
	}
	return s
}

// examplePrices is ten flat weeks, seven declines 99..93, then 96 and 97.
func examplePrices() []float64 {
	prices := []float64{100, 100, 100, 100, 100, 100, 100, 100, 100, 100}
	return append(prices, 99, 98, 97, 96, 95, 94, 93, 96, 97)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Frequencies = map[string]config.FrequencyConfig{
		"weekly": {Label: "W", UpStreak: 7, DownStreak: 7, HoldingPeriods: 1, MinAmplitude: 0.05},
	}
	return cfg
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestEngine_WorkedExampleNextClose(t *testing.T) {
	cfg := testConfig()
	cfg.Trading.EntryTiming = config.EntryNextClose
	cfg.Trading.AmplitudeAnchor = config.AnchorPreStreak

	provider := staticProvider{"": {weekly("X", domain.AssetClassEquity, examplePrices()...)}}
	res, err := NewEngine(cfg).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	trades := res.Book.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	if !almostEqual(tr.RawWeight, 0.28) || !almostEqual(tr.ScaledWeight, 0.28) {
		t.Errorf("weights raw=%v scaled=%v, want 0.28", tr.RawWeight, tr.ScaledWeight)
	}
	ret := 97.0/96.0 - 1
	if !almostEqual(tr.TradeReturn, ret) || !almostEqual(tr.SignedReturn, ret) {
		t.Errorf("return=%v signed=%v, want %v", tr.TradeReturn, tr.SignedReturn, ret)
	}
	wantPnL := 0.28*ret - 0.28*0.0005
	if !almostEqual(tr.PnL, wantPnL) {
		t.Errorf("pnl = %v, want %v", tr.PnL, wantPnL)
	}
	if !almostEqual(tr.GrossLeverageAtEntry, 0.28) {
		t.Errorf("gross leverage = %v, want 0.28", tr.GrossLeverageAtEntry)
	}

	if len(res.Curve.Points) != 1 || !almostEqual(res.Curve.Points[0].Value, 1+wantPnL) {
		t.Fatalf("equity = %+v, want single point %v", res.Curve.Points, 1+wantPnL)
	}
	if !res.Curve.Points[0].Time.Equal(base.AddDate(0, 0, 7*18)) {
		t.Errorf("equity point at %s, want exit period", res.Curve.Points[0].Time)
	}

	s := res.Summary
	if !almostEqual(s.TotalReturn, wantPnL) || s.Trades != 1 || s.WinRate != 1 {
		t.Errorf("summary = %+v", s)
	}
	if !math.IsNaN(s.AnnualizedReturn) || !math.IsNaN(s.Sharpe) {
		t.Errorf("single point should leave annualized stats undefined: %+v", s)
	}

	if len(res.ByAsset) != 1 || res.ByAsset[0].AssetClass != domain.AssetClassEquity || res.ByAsset[0].Symbol != "X" {
		t.Errorf("by asset = %+v", res.ByAsset)
	}
	if len(res.ByFrequency) != 1 || res.ByFrequency[0].Frequency != "W" {
		t.Errorf("by frequency = %+v", res.ByFrequency)
	}
}

func TestEngine_DefaultTiming(t *testing.T) {
	provider := staticProvider{"": {weekly("X", domain.AssetClassEquity, examplePrices()...)}}
	res, err := NewEngine(testConfig()).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	trades := res.Book.Trades()
	if len(trades) != 1 {
		t.Fatalf("expected 1 trade, got %d", len(trades))
	}
	tr := trades[0]
	amp := 93.0/99.0 - 1
	if !almostEqual(tr.Amplitude, amp) || !almostEqual(tr.RawWeight, 4*math.Abs(amp)) {
		t.Errorf("amplitude=%v raw=%v", tr.Amplitude, tr.RawWeight)
	}
	if !tr.EntryTime.Equal(tr.ExitTime) {
		t.Errorf("one-period hold should exit in the entry period: %s/%s", tr.EntryTime, tr.ExitTime)
	}
	if !almostEqual(tr.TradeReturn, 96.0/93.0-1) {
		t.Errorf("trade return = %v", tr.TradeReturn)
	}
}

func TestEngine_AllFlatIsEmptyResult(t *testing.T) {
	prices := make([]float64, 40)
	for i := range prices {
		prices[i] = 10
	}
	provider := staticProvider{"": {weekly("X", domain.AssetClassEquity, prices...)}}
	rec := &countingRecorder{}
	res, err := NewEngine(testConfig()).WithRecorder(rec).Run(context.Background(), provider)
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if res != nil {
		t.Error("no result should be produced")
	}
	if rec.status != StatusEmpty {
		t.Errorf("recorded status %q, want %q", rec.status, StatusEmpty)
	}
}

func TestEngine_InvalidConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.Portfolio.GrossCap = 0
	_, err := NewEngine(cfg).Run(context.Background(), staticProvider{"": nil})
	if !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "portfolio.gross_cap" {
		t.Errorf("unexpected error %v", err)
	}
}

func TestEngine_SkipsShortSeries(t *testing.T) {
	provider := staticProvider{"": {
		weekly("SHORT", domain.AssetClassEquity, 1, 2, 3),
		weekly("X", domain.AssetClassEquity, examplePrices()...),
	}}
	res, err := NewEngine(testConfig()).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(res.Skipped) != 1 {
		t.Fatalf("expected 1 skipped series, got %d", len(res.Skipped))
	}
	skip := res.Skipped[0]
	if skip.Symbol != "SHORT" || skip.Frequency != "W" || skip.Have != 3 || skip.Need != 19 {
		t.Errorf("skip = %+v", skip)
	}
	if res.Book.Len() != 1 {
		t.Errorf("expected 1 trade from X, got %d", res.Book.Len())
	}
}

func TestEngine_CohortDelever(t *testing.T) {
	cfg := testConfig()
	cfg.Portfolio.GrossCap = 0.3
	provider := staticProvider{"": {
		weekly("A", domain.AssetClassEquity, examplePrices()...),
		weekly("B", domain.AssetClassEquity, examplePrices()...),
	}}
	res, err := NewEngine(cfg).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Cohorts != 1 || res.Delevered != 1 {
		t.Fatalf("cohorts=%d delevered=%d, want 1/1", res.Cohorts, res.Delevered)
	}
	trades := res.Book.Trades()
	if len(trades) != 2 {
		t.Fatalf("expected 2 trades, got %d", len(trades))
	}
	sum := 0.0
	for _, tr := range trades {
		sum += math.Abs(tr.ScaledWeight)
		if !almostEqual(tr.ScaledWeight/tr.RawWeight, trades[0].ScaledWeight/trades[0].RawWeight) {
			t.Errorf("scale ratio differs for %s", tr.Symbol)
		}
		if !almostEqual(tr.GrossLeverageAtEntry, 0.3) {
			t.Errorf("gross leverage = %v, want 0.3", tr.GrossLeverageAtEntry)
		}
	}
	if !almostEqual(sum, 0.3) {
		t.Errorf("scaled gross = %v, want 0.3", sum)
	}
}

func TestEngine_PerFrequencySource(t *testing.T) {
	cfg := testConfig()
	f := cfg.Frequencies["weekly"]
	f.Source = "weekly.csv"
	cfg.Frequencies["weekly"] = f

	provider := staticProvider{
		"":           {weekly("DAILY", domain.AssetClassEquity, 1, 1, 1)},
		"weekly.csv": {weekly("X", domain.AssetClassEquity, examplePrices()...)},
	}
	res, err := NewEngine(cfg).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Book.Len() != 1 || res.Book.Trades()[0].Symbol != "X" {
		t.Errorf("expected the per-frequency source to be used")
	}
	if len(res.Skipped) != 0 {
		t.Errorf("default source should not be read: %+v", res.Skipped)
	}
}

func TestEngine_ResamplesDailySource(t *testing.T) {
	cfg := testConfig()
	f := cfg.Frequencies["weekly"]
	f.Rule = "W-FRI"
	cfg.Frequencies["weekly"] = f

	// the weekly example expanded to Monday..Friday with a constant week
	daily := &domain.PriceSeries{Symbol: "X", AssetClass: domain.AssetClassEquity}
	monday := base.AddDate(0, 0, -4)
	for w, p := range examplePrices() {
		for d := 0; d < 5; d++ {
			daily.Points = append(daily.Points, domain.PricePoint{Time: monday.AddDate(0, 0, 7*w+d), Price: p})
		}
	}

	res, err := NewEngine(cfg).Run(context.Background(), staticProvider{"": {daily}})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if res.Book.Len() != 1 {
		t.Fatalf("expected 1 trade, got %d", res.Book.Len())
	}
	tr := res.Book.Trades()[0]
	if tr.FormationTime.Weekday() != time.Friday {
		t.Errorf("formation should be labelled by week-ending Friday, got %s", tr.FormationTime.Weekday())
	}
	if !tr.FormationTime.Equal(base.AddDate(0, 0, 7*16)) {
		t.Errorf("formation at %s", tr.FormationTime)
	}
}

func TestEngine_DeterministicAcrossParallelism(t *testing.T) {
	cfg := testConfig()
	cfg.Trading.LongOnly = false
	var series []*domain.PriceSeries
	for i := 0; i < 6; i++ {
		prices := examplePrices()
		if i%2 == 1 {
			// mirrored: seven rises, a short signal in dual mode
			for j, p := range prices {
				prices[j] = 200 - p
			}
		}
		series = append(series, weekly(fmt.Sprintf("S%d", i), domain.AssetClassEquity, prices...))
	}
	provider := staticProvider{"": series}

	first, err := NewEngine(cfg).WithParallelism(1).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	second, err := NewEngine(cfg).WithParallelism(8).Run(context.Background(), provider)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	a, b := first.Book.IDs(), second.Book.IDs()
	if len(a) != 6 || len(a) != len(b) {
		t.Fatalf("trade counts %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("trade %d id differs", i)
		}
	}
	if first.Curve.Points[0].Value != second.Curve.Points[0].Value {
		t.Error("equity differs between runs")
	}

	shorts := 0
	for _, tr := range first.Book.Trades() {
		if tr.Direction == domain.DirectionShort {
			shorts++
		}
	}
	if shorts != 3 {
		t.Errorf("expected 3 shorts in dual mode, got %d", shorts)
	}
}

func TestEngine_ReportsDrops(t *testing.T) {
	cfg := testConfig()
	f := cfg.Frequencies["weekly"]
	f.MinAmplitude = 0.5
	cfg.Frequencies["weekly"] = f

	provider := staticProvider{"": {weekly("X", domain.AssetClassEquity, examplePrices()...)}}
	_, err := NewEngine(cfg).Run(context.Background(), provider)
	if !errors.Is(err, ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}

	rec := &countingRecorder{}
	_, _ = NewEngine(cfg).WithRecorder(rec).Run(context.Background(), provider)
	if rec.dropped[string(signal.DropBelowMinAmplitude)] != 1 {
		t.Errorf("dropped = %v", rec.dropped)
	}
}

type countingRecorder struct {
	signals int
	dropped map[string]int
	skipped int
	cohorts int
	trades  int
	status  string
}

func (r *countingRecorder) SignalsGenerated(_ string, n int) { r.signals += n }

func (r *countingRecorder) SignalsDropped(_ string, reason string, n int) {
	if r.dropped == nil {
		r.dropped = make(map[string]int)
	}
	r.dropped[reason] += n
}

func (r *countingRecorder) SymbolSkipped(string) { r.skipped++ }
func (r *countingRecorder) CohortAllocated(float64, bool) { r.cohorts++ }
func (r *countingRecorder) TradesExecuted(n int) { r.trades += n }
func (r *countingRecorder) RunCompleted(s string, _ time.Duration) { r.status = s }
