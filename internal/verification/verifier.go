// Package verification replays a persisted backtest run and checks that the
// stored trades and equity curve match a fresh computation.
package verification

import (
	"math"
	"time"

	"contrarian-lab/internal/domain"
)

// FloatTolerance is the absolute tolerance for float64 comparisons.
const FloatTolerance = 1e-7

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string
	Expected any // stored value
	Actual   any // replayed value
}

// TradeResult is the comparison of one stored trade.
type TradeResult struct {
	TradeID     string
	Match       bool
	Divergences []FieldDivergence
	StoredPnL   float64
	ReplayedPnL float64
}

// Report is the verification result of one run.
type Report struct {
	RunID         string
	ReplayedRunID string

	StoredTrades    int
	ReplayedTrades  int
	MatchedTrades   int
	DivergentTrades int

	Missing    []string // stored trade ids the replay did not produce
	Unexpected []string // replayed trade ids absent from storage

	EquityPoints      int
	EquityDivergences []FieldDivergence

	Results []TradeResult // stored order
}

// OK reports whether the replay reproduced the run exactly.
func (r *Report) OK() bool {
	return r.DivergentTrades == 0 &&
		len(r.Missing) == 0 &&
		len(r.Unexpected) == 0 &&
		len(r.EquityDivergences) == 0 &&
		r.RunID == r.ReplayedRunID
}

// CompareTrades compares two trades field by field. Times must be equal;
// floats must agree within FloatTolerance.
func CompareTrades(stored, replayed *domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence
	add := func(field string, expected, actual any) {
		divergences = append(divergences, FieldDivergence{Field: field, Expected: expected, Actual: actual})
	}

	strs := []struct {
		field            string
		expected, actual string
	}{
		{"TradeID", stored.TradeID, replayed.TradeID},
		{"Symbol", stored.Symbol, replayed.Symbol},
		{"AssetClass", string(stored.AssetClass), string(replayed.AssetClass)},
		{"Frequency", stored.Frequency, replayed.Frequency},
	}
	for _, s := range strs {
		if s.expected != s.actual {
			add(s.field, s.expected, s.actual)
		}
	}

	times := []struct {
		field            string
		expected, actual time.Time
	}{
		{"FormationTime", stored.FormationTime, replayed.FormationTime},
		{"EntryTime", stored.EntryTime, replayed.EntryTime},
		{"ExitTime", stored.ExitTime, replayed.ExitTime},
	}
	for _, tt := range times {
		if !tt.expected.Equal(tt.actual) {
			add(tt.field, tt.expected, tt.actual)
		}
	}

	if stored.Direction != replayed.Direction {
		add("Direction", stored.Direction, replayed.Direction)
	}
	if stored.StreakLen != replayed.StreakLen {
		add("StreakLen", stored.StreakLen, replayed.StreakLen)
	}

	floats := []struct {
		field            string
		expected, actual float64
	}{
		{"Amplitude", stored.Amplitude, replayed.Amplitude},
		{"RawWeight", stored.RawWeight, replayed.RawWeight},
		{"ScaledWeight", stored.ScaledWeight, replayed.ScaledWeight},
		{"GrossLeverageAtEntry", stored.GrossLeverageAtEntry, replayed.GrossLeverageAtEntry},
		{"TradeReturn", stored.TradeReturn, replayed.TradeReturn},
		{"SignedReturn", stored.SignedReturn, replayed.SignedReturn},
		{"PnL", stored.PnL, replayed.PnL},
	}
	for _, f := range floats {
		if !floatEquals(f.expected, f.actual) {
			add(f.field, f.expected, f.actual)
		}
	}

	return divergences
}

// CompareEquity compares two equity curves point by point.
func CompareEquity(stored, replayed []domain.EquityPoint) []FieldDivergence {
	var divergences []FieldDivergence
	if len(stored) != len(replayed) {
		return append(divergences, FieldDivergence{Field: "Points", Expected: len(stored), Actual: len(replayed)})
	}
	for i := range stored {
		if !stored[i].Time.Equal(replayed[i].Time) {
			divergences = append(divergences, FieldDivergence{
				Field:    "Time[" + stored[i].Time.Format(time.DateOnly) + "]",
				Expected: stored[i].Time,
				Actual:   replayed[i].Time,
			})
			continue
		}
		if !floatEquals(stored[i].Value, replayed[i].Value) {
			divergences = append(divergences, FieldDivergence{
				Field:    "Value[" + stored[i].Time.Format(time.DateOnly) + "]",
				Expected: stored[i].Value,
				Actual:   replayed[i].Value,
			})
		}
	}
	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
// NaN equals NaN.
func floatEquals(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return math.Abs(a-b) <= FloatTolerance
}
