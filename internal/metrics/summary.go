package metrics

import (
	"math"
	"sort"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/equity"
	"contrarian-lab/internal/ledger"
)

const daysPerYear = 365.25

// Summary holds the headline statistics of a run. NaN marks an undefined
// value.
type Summary struct {
	TotalReturn          float64
	AnnualizedReturn     float64
	AnnualizedVolatility float64
	Sharpe               float64
	MaxDrawdown          float64
	WinRate              float64
	Trades               int

	Years          float64
	PeriodsPerYear float64
}

// Metrics returns the summary as ordered (metric, value) pairs.
func (s *Summary) Metrics() []domain.MetricValue {
	return []domain.MetricValue{
		{Metric: domain.MetricTotalReturn, Value: s.TotalReturn},
		{Metric: domain.MetricAnnualizedReturn, Value: s.AnnualizedReturn},
		{Metric: domain.MetricAnnualizedVolatility, Value: s.AnnualizedVolatility},
		{Metric: domain.MetricSharpe, Value: s.Sharpe},
		{Metric: domain.MetricMaxDrawdown, Value: s.MaxDrawdown},
		{Metric: domain.MetricWinRate, Value: s.WinRate},
		{Metric: domain.MetricTrades, Value: float64(s.Trades)},
	}
}

// Compute derives the summary from the trade book and equity curve.
// Returns domain.ErrEmptyResult for an empty book.
func Compute(book *ledger.TradeBook, curve *equity.Curve) (*Summary, error) {
	if book.Len() == 0 || len(curve.Points) == 0 {
		return nil, domain.ErrEmptyResult
	}

	points := curve.Points
	last := points[len(points)-1].Value
	s := &Summary{
		TotalReturn:          last - 1,
		AnnualizedReturn:     math.NaN(),
		AnnualizedVolatility: math.NaN(),
		Sharpe:               math.NaN(),
		MaxDrawdown:          equity.MaxDrawdown(points),
		WinRate:              book.WinRate(),
		Trades:               book.Len(),
		Years:                yearsBetween(points),
	}

	if s.Years > 0 {
		s.AnnualizedReturn = math.Pow(last, 1/s.Years) - 1
	}

	times := make([]time.Time, len(curve.Periods))
	for i, p := range curve.Periods {
		times[i] = p.Time
	}
	s.PeriodsPerYear = EstimatePeriodsPerYear(times)
	if !math.IsNaN(s.PeriodsPerYear) && s.PeriodsPerYear > 0 {
		pnl := curve.PnLs()
		mean := computeMean(pnl)
		s.AnnualizedVolatility = computePopulationStddev(pnl, mean) * math.Sqrt(s.PeriodsPerYear)
		if s.AnnualizedVolatility > 0 {
			s.Sharpe = mean * s.PeriodsPerYear / s.AnnualizedVolatility
		}
	}
	return s, nil
}

// yearsBetween uses whole days between the first and last point.
// NaN for a single point or a non-positive span.
func yearsBetween(points []domain.EquityPoint) float64 {
	if len(points) < 2 {
		return math.NaN()
	}
	days := wholeDays(points[len(points)-1].Time.Sub(points[0].Time))
	if days <= 0 {
		return math.NaN()
	}
	return float64(days) / daysPerYear
}

// EstimatePeriodsPerYear returns 365.25 divided by the median positive
// day gap between consecutive timestamps. NaN with fewer than 3 timestamps
// or no positive gap.
func EstimatePeriodsPerYear(times []time.Time) float64 {
	if len(times) < 3 {
		return math.NaN()
	}
	gaps := make([]float64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		if d := wholeDays(times[i].Sub(times[i-1])); d > 0 {
			gaps = append(gaps, float64(d))
		}
	}
	if len(gaps) == 0 {
		return math.NaN()
	}
	sort.Float64s(gaps)
	median := computePercentile(gaps, 0.50)
	if median <= 0 {
		return math.NaN()
	}
	return daysPerYear / median
}

func wholeDays(d time.Duration) int64 {
	return int64(math.Floor(d.Hours() / 24))
}
