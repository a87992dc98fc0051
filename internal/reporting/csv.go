package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/metrics"
)

// Column headers. The reporting contract depends on these names and orders.
var (
	summaryHeader    = []string{"metric", "value"}
	equityHeader     = []string{"exit_time", "equity"}
	byAssetHeader    = []string{"asset_class", "symbol", "pnl"}
	byFreqHeader     = []string{"freq_label", "pnl"}
	histogramHeader  = []string{"bin_left", "bin_right", "bin_center", "count"}
	drawdownHeader   = []string{"exit_time", "equity", "drawdown"}
	yearHeader       = []string{"year", "pnl"}
	assetClassHeader = []string{"asset_class", "sum", "count", "mean"}
)

var tradeHeader = []string{
	"symbol", "asset_class", "freq_label", "signal_time", "entry_time", "exit_time",
	"direction", "streak_len", "amplitude", "raw_weight", "trade_return",
	"scaled_weight", "gross_leverage", "pnl", "signed_return", "trade_id",
}

// RenderSummaryCSV renders (metric, value) pairs in the given order.
func RenderSummaryCSV(rows []domain.MetricValue) (string, error) {
	return render(summaryHeader, len(rows), func(i int) []string {
		return []string{rows[i].Metric, formatFloat(rows[i].Value)}
	})
}

// RenderEquityCSV renders the equity curve.
func RenderEquityCSV(points []domain.EquityPoint) (string, error) {
	return render(equityHeader, len(points), func(i int) []string {
		return []string{formatTime(points[i].Time), formatFloat(points[i].Value)}
	})
}

// RenderTradesCSV renders the trade table.
func RenderTradesCSV(trades []domain.Trade) (string, error) {
	return render(tradeHeader, len(trades), func(i int) []string {
		return tradeRecord(&trades[i])
	})
}

// RenderTradesWithHoldingCSV renders the trade table plus a holding_days column.
func RenderTradesWithHoldingCSV(trades []domain.Trade) (string, error) {
	header := append(append([]string(nil), tradeHeader...), "holding_days")
	return render(header, len(trades), func(i int) []string {
		return append(tradeRecord(&trades[i]), strconv.Itoa(trades[i].HoldingDays()))
	})
}

// RenderByAssetCSV renders pnl by (asset class, symbol).
func RenderByAssetCSV(rows []domain.AssetBreakdownRow) (string, error) {
	return render(byAssetHeader, len(rows), func(i int) []string {
		return []string{string(rows[i].AssetClass), rows[i].Symbol, formatFloat(rows[i].PnL)}
	})
}

// RenderByFrequencyCSV renders pnl by frequency label.
func RenderByFrequencyCSV(rows []domain.FrequencyBreakdownRow) (string, error) {
	return render(byFreqHeader, len(rows), func(i int) []string {
		return []string{rows[i].Frequency, formatFloat(rows[i].PnL)}
	})
}

// RenderHistogramCSV renders pnl histogram bins.
func RenderHistogramCSV(bins []metrics.HistogramBin) (string, error) {
	return render(histogramHeader, len(bins), func(i int) []string {
		b := bins[i]
		return []string{formatFloat(b.Left), formatFloat(b.Right), formatFloat(b.Center), strconv.Itoa(b.Count)}
	})
}

// RenderDrawdownCSV renders equity next to its drawdown. Both slices are
// in the same time order.
func RenderDrawdownCSV(points, drawdowns []domain.EquityPoint) (string, error) {
	return render(drawdownHeader, len(points), func(i int) []string {
		dd := math.NaN()
		if i < len(drawdowns) {
			dd = drawdowns[i].Value
		}
		return []string{formatTime(points[i].Time), formatFloat(points[i].Value), formatFloat(dd)}
	})
}

// RenderYearlyCSV renders pnl by calendar year.
func RenderYearlyCSV(rows []metrics.YearPnL) (string, error) {
	return render(yearHeader, len(rows), func(i int) []string {
		return []string{strconv.Itoa(rows[i].Year), formatFloat(rows[i].PnL)}
	})
}

// RenderAssetClassCSV renders sum, count and mean pnl per asset class.
func RenderAssetClassCSV(rows []metrics.AssetClassStat) (string, error) {
	return render(assetClassHeader, len(rows), func(i int) []string {
		r := rows[i]
		return []string{string(r.AssetClass), formatFloat(r.Sum), strconv.Itoa(r.Count), formatFloat(r.Mean)}
	})
}

func tradeRecord(t *domain.Trade) []string {
	return []string{
		t.Symbol,
		string(t.AssetClass),
		t.Frequency,
		formatTime(t.FormationTime),
		formatTime(t.EntryTime),
		formatTime(t.ExitTime),
		strconv.Itoa(int(t.Direction)),
		strconv.Itoa(t.StreakLen),
		formatFloat(t.Amplitude),
		formatFloat(t.RawWeight),
		formatFloat(t.TradeReturn),
		formatFloat(t.ScaledWeight),
		formatFloat(t.GrossLeverageAtEntry),
		formatFloat(t.PnL),
		formatFloat(t.SignedReturn),
		t.TradeID,
	}
}

func render(header []string, n int, record func(i int) []string) (string, error) {
	var sb strings.Builder
	if err := writeCSV(&sb, header, n, record); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func writeCSV(dst io.Writer, header []string, n int, record func(i int) []string) error {
	w := csv.NewWriter(dst)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i := 0; i < n; i++ {
		if err := w.Write(record(i)); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// formatFloat uses the shortest representation that round-trips.
// NaN and infinities render as NaN, +Inf and -Inf.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// formatTime renders midnight UTC as a date and anything else as RFC 3339.
func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}
