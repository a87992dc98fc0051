package signal

import (
	"math"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/domain"
)

// DropReason explains why a triggered streak produced no candidate.
type DropReason string

// Drop reasons.
const (
	DropBeyondHorizon     DropReason = "beyond_horizon"
	DropNonFiniteReturn   DropReason = "non_finite_return"
	DropBelowMinAmplitude DropReason = "below_min_amplitude"
)

// Formation is a signal together with the instrument return realized over
// its holding window.
type Formation struct {
	domain.SignalEvent
	TradeReturn float64
}

// Result is the output of one (symbol, frequency) scan.
type Result struct {
	Formations []Formation
	Dropped    map[DropReason]int
}

// Generator evaluates streak thresholds for one frequency.
// It holds no mutable state and is safe for concurrent use.
type Generator struct {
	freq    config.FrequencyConfig
	trading config.TradingConfig
	buffer  int
}

// NewGenerator creates a generator for one frequency.
func NewGenerator(freq config.FrequencyConfig, trading config.TradingConfig, buffer int) *Generator {
	return &Generator{freq: freq, trading: trading, buffer: buffer}
}

// Generate scans s in time order and returns every candidate whose
// formation, amplitude and holding window are fully inside the series.
// A series shorter than the required history returns a
// *domain.DataInsufficiencyError.
func (g *Generator) Generate(s *domain.PriceSeries) (Result, error) {
	points := dropMissing(s.Points)
	need := g.freq.RequiredHistory(g.buffer)
	if len(points) < need {
		return Result{}, &domain.DataInsufficiencyError{
			Symbol:    s.Symbol,
			Frequency: g.freq.Label,
			Have:      len(points),
			Need:      need,
		}
	}

	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	returns := Returns(prices)
	states := Scan(returns)
	n := len(points)

	res := Result{Dropped: make(map[DropReason]int)}
	for t := 1; t < n; t++ {
		dir, streak := g.trigger(states[t])
		if streak == 0 {
			continue
		}

		entry := t + 1
		exit := g.exitIndex(entry)
		if exit >= n {
			res.Dropped[DropBeyondHorizon]++
			continue
		}

		ret, ok := g.holdingReturn(prices, returns, entry, exit)
		if !ok {
			res.Dropped[DropNonFiniteReturn]++
			continue
		}

		start := t - streak + 1
		if g.trading.AmplitudeAnchor == config.AnchorPreStreak {
			start = t - streak
		}
		amp := prices[t]/prices[start] - 1
		if math.Abs(amp) < g.freq.MinAmplitude {
			res.Dropped[DropBelowMinAmplitude]++
			continue
		}

		res.Formations = append(res.Formations, Formation{
			SignalEvent: domain.SignalEvent{
				Symbol:        s.Symbol,
				AssetClass:    s.AssetClass,
				Frequency:     g.freq.Label,
				FormationTime: points[t].Time,
				EntryTime:     points[entry].Time,
				ExitTime:      points[exit].Time,
				Direction:     dir,
				StreakLen:     streak,
				Amplitude:     amp,
			},
			TradeReturn: ret,
		})
	}
	return res, nil
}

// trigger returns the direction and streak length of a firing signal,
// or zero streak when nothing fires. Long-only mode looks at the down run
// only; dual mode checks the up run first.
func (g *Generator) trigger(s State) (domain.Direction, int) {
	if !g.trading.LongOnly && s.Up >= g.freq.UpStreak {
		return domain.DirectionShort, s.Up
	}
	if s.Down >= g.freq.DownStreak {
		return domain.DirectionLong, s.Down
	}
	return domain.DirectionLong, 0
}

func (g *Generator) exitIndex(entry int) int {
	if g.trading.EntryTiming == config.EntryNextClose {
		return entry + g.freq.HoldingPeriods
	}
	return entry + g.freq.HoldingPeriods - 1
}

// holdingReturn compounds the sub-period returns of the holding window.
// Under next_close the window starts after the entry close.
func (g *Generator) holdingReturn(prices, returns []float64, entry, exit int) (float64, bool) {
	if g.trading.EntryTiming == config.EntryNextClose {
		r := prices[exit]/prices[entry] - 1
		return r, isFinite(r)
	}
	growth := 1.0
	for i := entry; i <= exit; i++ {
		if !isFinite(returns[i]) {
			return 0, false
		}
		growth *= 1 + returns[i]
	}
	return growth - 1, true
}

func dropMissing(points []domain.PricePoint) []domain.PricePoint {
	for _, p := range points {
		if math.IsNaN(p.Price) {
			out := make([]domain.PricePoint, 0, len(points))
			for _, q := range points {
				if !math.IsNaN(q.Price) {
					out = append(out, q)
				}
			}
			return out
		}
	}
	return points
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
