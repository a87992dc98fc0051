package equity

import (
	"math"
	"testing"
	"time"

	"contrarian-lab/internal/domain"
)

var t0 = time.Date(2020, 6, 5, 0, 0, 0, 0, time.UTC)

func exitAt(weeks int, pnl float64) domain.Trade {
	return domain.Trade{
		SignalEvent: domain.SignalEvent{ExitTime: t0.AddDate(0, 0, 7*weeks)},
		PnL:         pnl,
	}
}

func TestAggregate_SumsByExitTime(t *testing.T) {
	periods := Aggregate([]domain.Trade{
		exitAt(2, 0.01),
		exitAt(0, 0.02),
		exitAt(2, -0.005),
	})
	if len(periods) != 2 {
		t.Fatalf("expected 2 periods, got %d", len(periods))
	}
	if !periods[0].Time.Equal(t0) || periods[0].PnL != 0.02 {
		t.Errorf("period 0 = %+v", periods[0])
	}
	if math.Abs(periods[1].PnL-0.005) > 1e-15 {
		t.Errorf("period 1 pnl = %v, want 0.005", periods[1].PnL)
	}
}

func TestCompound_Recurrence(t *testing.T) {
	c := Build([]domain.Trade{exitAt(0, 0.1), exitAt(1, -0.2), exitAt(2, 0.05)})

	if c.Points[0].Value != 1+c.Periods[0].PnL {
		t.Errorf("equity(t0) = %v, want %v", c.Points[0].Value, 1+c.Periods[0].PnL)
	}
	for i := 1; i < len(c.Points); i++ {
		want := c.Points[i-1].Value * (1 + c.Periods[i].PnL)
		if c.Points[i].Value != want {
			t.Errorf("equity(%d) = %v, want %v", i, c.Points[i].Value, want)
		}
	}
}

func TestCompound_SingleTradeExample(t *testing.T) {
	pnl := 0.28*(97.0/96.0-1) - 0.28*0.0005
	c := Build([]domain.Trade{exitAt(0, pnl)})
	if len(c.Points) != 1 {
		t.Fatalf("expected one point, got %d", len(c.Points))
	}
	if math.Abs(c.Points[0].Value-1.0027767) > 1e-6 {
		t.Errorf("equity = %v, want ~1.0027767", c.Points[0].Value)
	}
}

func TestDrawdowns(t *testing.T) {
	points := []domain.EquityPoint{
		{Time: t0, Value: 1.0},
		{Time: t0.AddDate(0, 0, 1), Value: 1.2},
		{Time: t0.AddDate(0, 0, 2), Value: 0.9},
		{Time: t0.AddDate(0, 0, 3), Value: 1.3},
	}
	dd := Drawdowns(points)
	if dd[0].Value != 0 || dd[1].Value != 0 || dd[3].Value != 0 {
		t.Errorf("expected zero drawdown at highs, got %v", dd)
	}
	if math.Abs(dd[2].Value-(-0.25)) > 1e-12 {
		t.Errorf("drawdown = %v, want -0.25", dd[2].Value)
	}
	if math.Abs(MaxDrawdown(points)-(-0.25)) > 1e-12 {
		t.Errorf("max drawdown = %v, want -0.25", MaxDrawdown(points))
	}
	if MaxDrawdown(nil) != 0 {
		t.Error("empty series max drawdown should be 0")
	}
}
