package metrics

import (
	"math"
	"sort"

	"github.com/samber/lo"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/equity"
)

// DefaultHistogramBins is the bin count of the pnl histogram.
const DefaultHistogramBins = 30

// drawdownAlertLevel marks a deep drawdown for PointsBelowAlert.
const drawdownAlertLevel = -0.05

// Diagnostics is a trade-level analysis of a finished run.
type Diagnostics struct {
	Trades int
	Wins   int
	Losses int
	Flats  int

	WinRate      float64
	LossRate     float64
	AvgWin       float64
	AvgLoss      float64
	MeanPnL      float64
	MedianPnL    float64
	StdPnL       float64 // population
	SkewPnL      float64
	KurtosisPnL  float64 // excess
	ProfitFactor float64 // +Inf when there are no losses

	MeanSignedReturn float64
	StdSignedReturn  float64

	AvgHoldingDays float64
	MinHoldingDays int
	MaxHoldingDays int

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int

	MaxDrawdown      float64
	CurrentDrawdown  float64
	PointsBelowAlert int // equity points below -5% drawdown

	Histogram    []HistogramBin
	Drawdowns    []domain.EquityPoint
	ByYear       []YearPnL
	ByAssetClass []AssetClassStat
}

// HistogramBin is one bucket of the pnl distribution.
type HistogramBin struct {
	Left   float64
	Right  float64
	Center float64
	Count  int
}

// YearPnL is realized pnl by calendar year of exit.
type YearPnL struct {
	Year int
	PnL  float64
}

// AssetClassStat aggregates pnl for one asset class.
type AssetClassStat struct {
	AssetClass domain.AssetClass
	Sum        float64
	Count      int
	Mean       float64
}

// Analyze computes diagnostics over trades in ledger order and the
// matching equity curve. Returns domain.ErrEmptyResult without trades.
func Analyze(trades []domain.Trade, points []domain.EquityPoint) (*Diagnostics, error) {
	n := len(trades)
	if n == 0 {
		return nil, domain.ErrEmptyResult
	}

	pnl := lo.Map(trades, func(t domain.Trade, _ int) float64 { return t.PnL })
	signed := lo.Map(trades, func(t domain.Trade, _ int) float64 { return t.SignedReturn })
	holding := lo.Map(trades, func(t domain.Trade, _ int) int { return t.HoldingDays() })

	d := &Diagnostics{Trades: n}

	var winSum, lossSum float64
	for _, v := range pnl {
		switch {
		case v > 0:
			d.Wins++
			winSum += v
		case v < 0:
			d.Losses++
			lossSum += v
		default:
			d.Flats++
		}
	}
	d.WinRate = float64(d.Wins) / float64(n)
	d.LossRate = float64(d.Losses) / float64(n)
	if d.Wins > 0 {
		d.AvgWin = winSum / float64(d.Wins)
	}
	if d.Losses > 0 {
		d.AvgLoss = lossSum / float64(d.Losses)
	}
	if lossSum < 0 {
		d.ProfitFactor = winSum / math.Abs(lossSum)
	} else {
		d.ProfitFactor = math.Inf(1)
	}

	d.MeanPnL = computeMean(pnl)
	d.MedianPnL = computeMedian(pnl)
	d.StdPnL = computePopulationStddev(pnl, d.MeanPnL)
	d.SkewPnL = computeSkew(pnl)
	d.KurtosisPnL = computeKurtosis(pnl)

	d.MeanSignedReturn = computeMean(signed)
	d.StdSignedReturn = computePopulationStddev(signed, d.MeanSignedReturn)

	d.AvgHoldingDays = float64(lo.Sum(holding)) / float64(n)
	d.MinHoldingDays = lo.Min(holding)
	d.MaxHoldingDays = lo.Max(holding)

	d.MaxConsecutiveWins = computeMaxConsecutive(pnl, func(v float64) bool { return v > 0 })
	d.MaxConsecutiveLosses = computeMaxConsecutive(pnl, func(v float64) bool { return v < 0 })

	d.Drawdowns = equity.Drawdowns(points)
	d.MaxDrawdown = math.NaN()
	d.CurrentDrawdown = math.NaN()
	if len(d.Drawdowns) > 0 {
		d.MaxDrawdown = equity.MaxDrawdown(points)
		d.CurrentDrawdown = d.Drawdowns[len(d.Drawdowns)-1].Value
		d.PointsBelowAlert = lo.CountBy(d.Drawdowns, func(p domain.EquityPoint) bool {
			return p.Value < drawdownAlertLevel
		})
	}

	d.Histogram = Histogram(pnl, DefaultHistogramBins)
	d.ByYear = pnlByYear(trades)
	d.ByAssetClass = pnlByAssetClass(trades)
	return d, nil
}

// Histogram splits [min, max] into equal-width bins; the last bin is
// closed on the right. A constant sample uses the range value±0.5.
func Histogram(values []float64, bins int) []HistogramBin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}
	lowV, highV := lo.Min(values), lo.Max(values)
	if lowV == highV {
		lowV -= 0.5
		highV += 0.5
	}
	width := (highV - lowV) / float64(bins)

	out := make([]HistogramBin, bins)
	for i := range out {
		left := lowV + float64(i)*width
		right := lowV + float64(i+1)*width
		if i == bins-1 {
			right = highV
		}
		out[i] = HistogramBin{Left: left, Right: right, Center: (left + right) / 2}
	}
	for _, v := range values {
		idx := int((v - lowV) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

func pnlByYear(trades []domain.Trade) []YearPnL {
	groups := lo.GroupBy(trades, func(t domain.Trade) int { return t.ExitTime.Year() })
	years := lo.Keys(groups)
	sort.Ints(years)

	return lo.Map(years, func(y int, _ int) YearPnL {
		return YearPnL{Year: y, PnL: lo.SumBy(groups[y], func(t domain.Trade) float64 { return t.PnL })}
	})
}

func pnlByAssetClass(trades []domain.Trade) []AssetClassStat {
	groups := lo.GroupBy(trades, func(t domain.Trade) domain.AssetClass { return t.AssetClass })
	classes := lo.Keys(groups)
	sort.Slice(classes, func(i, j int) bool { return classes[i] < classes[j] })

	return lo.Map(classes, func(c domain.AssetClass, _ int) AssetClassStat {
		members := groups[c]
		sum := lo.SumBy(members, func(t domain.Trade) float64 { return t.PnL })
		return AssetClassStat{
			AssetClass: c,
			Sum:        sum,
			Count:      len(members),
			Mean:       sum / float64(len(members)),
		}
	})
}
