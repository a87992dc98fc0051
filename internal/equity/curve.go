// Package equity builds the compounding NAV series from realized pnl.
package equity

import (
	"sort"
	"time"

	"github.com/samber/lo"

	"contrarian-lab/internal/domain"
)

// PeriodPnL is the total realized pnl at one exit timestamp.
type PeriodPnL struct {
	Time time.Time
	PnL  float64
}

// Curve is the NAV series with its per-period pnl.
type Curve struct {
	Periods []PeriodPnL
	Points  []domain.EquityPoint
}

// Aggregate sums trade pnl by exit time, ordered by time.
// Trades are folded in the given order within each exit bucket.
func Aggregate(trades []domain.Trade) []PeriodPnL {
	groups := lo.GroupBy(trades, func(t domain.Trade) int64 { return t.ExitTime.UnixNano() })
	keys := lo.Keys(groups)
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	out := make([]PeriodPnL, len(keys))
	for i, k := range keys {
		bucket := groups[k]
		out[i] = PeriodPnL{
			Time: bucket[0].ExitTime,
			PnL:  lo.SumBy(bucket, func(t domain.Trade) float64 { return t.PnL }),
		}
	}
	return out
}

// Compound returns equity(t) = equity(t_prev) * (1 + pnl(t)) starting
// from 1.
func Compound(periods []PeriodPnL) []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(periods))
	value := 1.0
	for i, p := range periods {
		value *= 1 + p.PnL
		out[i] = domain.EquityPoint{Time: p.Time, Value: value}
	}
	return out
}

// Build aggregates trades and compounds them into a curve.
func Build(trades []domain.Trade) *Curve {
	periods := Aggregate(trades)
	return &Curve{Periods: periods, Points: Compound(periods)}
}

// Values returns the equity column.
func (c *Curve) Values() []float64 {
	return lo.Map(c.Points, func(p domain.EquityPoint, _ int) float64 { return p.Value })
}

// PnLs returns the period pnl column.
func (c *Curve) PnLs() []float64 {
	return lo.Map(c.Periods, func(p PeriodPnL, _ int) float64 { return p.PnL })
}

// Drawdowns returns equity/running_max - 1 for each point.
func Drawdowns(points []domain.EquityPoint) []domain.EquityPoint {
	out := make([]domain.EquityPoint, len(points))
	peak := 0.0
	for i, p := range points {
		if i == 0 || p.Value > peak {
			peak = p.Value
		}
		out[i] = domain.EquityPoint{Time: p.Time, Value: p.Value/peak - 1}
	}
	return out
}

// MaxDrawdown returns the most negative drawdown, 0 for an empty series.
func MaxDrawdown(points []domain.EquityPoint) float64 {
	worst := 0.0
	for _, d := range Drawdowns(points) {
		if d.Value < worst {
			worst = d.Value
		}
	}
	return worst
}
