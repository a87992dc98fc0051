package metrics

import (
	"errors"
	"math"
	"testing"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/equity"
)

func TestAnalyze_TradeCounts(t *testing.T) {
	trades := []domain.Trade{
		closedTrade("a", 0, 0.02),
		closedTrade("b", 7, -0.01),
		closedTrade("c", 14, 0),
		closedTrade("d", 21, 0.03),
		closedTrade("e", 28, 0.01),
		closedTrade("f", 400, -0.02),
	}
	curve := equity.Build(trades)
	d, err := Analyze(trades, curve.Points)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if d.Trades != 6 || d.Wins != 3 || d.Losses != 2 || d.Flats != 1 {
		t.Errorf("counts = %d/%d/%d/%d", d.Trades, d.Wins, d.Losses, d.Flats)
	}
	if math.Abs(d.ProfitFactor-0.06/0.03) > 1e-12 {
		t.Errorf("profit factor = %v, want 2", d.ProfitFactor)
	}
	if math.Abs(d.AvgWin-0.02) > 1e-12 || math.Abs(d.AvgLoss-(-0.015)) > 1e-12 {
		t.Errorf("avg win/loss = %v/%v", d.AvgWin, d.AvgLoss)
	}
	if math.Abs(d.MedianPnL-0.01*0.5) > 1e-12 {
		t.Errorf("median = %v, want 0.005", d.MedianPnL)
	}
	if d.MaxConsecutiveWins != 2 || d.MaxConsecutiveLosses != 1 {
		t.Errorf("streaks = %d/%d, want 2/1", d.MaxConsecutiveWins, d.MaxConsecutiveLosses)
	}
	if d.AvgHoldingDays != 7 || d.MinHoldingDays != 7 || d.MaxHoldingDays != 7 {
		t.Errorf("holding days = %v/%d/%d", d.AvgHoldingDays, d.MinHoldingDays, d.MaxHoldingDays)
	}
	if len(d.ByYear) != 2 || d.ByYear[0].Year != 2019 || d.ByYear[1].Year != 2020 {
		t.Errorf("by year = %+v", d.ByYear)
	}
	if len(d.ByAssetClass) != 1 || d.ByAssetClass[0].Count != 6 {
		t.Errorf("by asset class = %+v", d.ByAssetClass)
	}
	if len(d.Histogram) != DefaultHistogramBins {
		t.Errorf("histogram bins = %d", len(d.Histogram))
	}
	if len(d.Drawdowns) != len(curve.Points) {
		t.Errorf("drawdown points = %d, want %d", len(d.Drawdowns), len(curve.Points))
	}
	if d.CurrentDrawdown >= 0 {
		t.Errorf("current drawdown = %v, want negative after final loss", d.CurrentDrawdown)
	}
}

func TestAnalyze_NoLossesInfiniteProfitFactor(t *testing.T) {
	trades := []domain.Trade{closedTrade("a", 0, 0.01), closedTrade("b", 7, 0.02)}
	d, err := Analyze(trades, equity.Build(trades).Points)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !math.IsInf(d.ProfitFactor, 1) {
		t.Errorf("profit factor = %v, want +Inf", d.ProfitFactor)
	}
	if !math.IsNaN(d.SkewPnL) || !math.IsNaN(d.KurtosisPnL) {
		t.Errorf("two samples: skew/kurtosis should be NaN, got %v/%v", d.SkewPnL, d.KurtosisPnL)
	}
}

func TestAnalyze_Empty(t *testing.T) {
	if _, err := Analyze(nil, nil); !errors.Is(err, domain.ErrEmptyResult) {
		t.Errorf("expected ErrEmptyResult, got %v", err)
	}
}

func TestSkewKurtosis(t *testing.T) {
	x := []float64{1, 2, 3, 4, 10}
	if got := computeSkew(x); math.Abs(got-1.6970562748477143) > 1e-12 {
		t.Errorf("skew = %v", got)
	}
	if got := computeKurtosis(x); math.Abs(got-3.152) > 1e-9 {
		t.Errorf("kurtosis = %v", got)
	}
	if computeSkew([]float64{2, 2, 2}) != 0 || computeKurtosis([]float64{2, 2, 2, 2}) != 0 {
		t.Error("constant input should give 0")
	}
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 1, 2, 3, 4}, 4)
	want := []int{1, 1, 1, 2}
	for i, w := range want {
		if bins[i].Count != w {
			t.Errorf("bin %d count = %d, want %d", i, bins[i].Count, w)
		}
	}
	if bins[0].Left != 0 || bins[3].Right != 4 || bins[1].Center != 1.5 {
		t.Errorf("edges = %+v", bins)
	}

	constant := Histogram([]float64{0.3, 0.3}, 2)
	if math.Abs(constant[0].Left+0.2) > 1e-12 || constant[0].Count+constant[1].Count != 2 {
		t.Errorf("constant histogram = %+v", constant)
	}
}

func TestHoldingDaysFloor(t *testing.T) {
	tr := domain.Trade{SignalEvent: domain.SignalEvent{
		EntryTime: t0,
		ExitTime:  t0.Add(47 * time.Hour),
	}}
	if tr.HoldingDays() != 1 {
		t.Errorf("holding days = %d, want 1", tr.HoldingDays())
	}
}
