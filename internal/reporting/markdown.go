package reporting

import (
	"fmt"
	"math"
	"strings"
	"time"

	"contrarian-lab/internal/domain"
)

// RenderMarkdown renders the analysis report as Markdown.
func RenderMarkdown(a *Analysis) string {
	var sb strings.Builder
	d := a.Diagnostics
	summary := make(map[string]float64, len(a.Summary))
	for _, m := range a.Summary {
		summary[m.Metric] = m.Value
	}
	get := func(name string) float64 {
		if v, ok := summary[name]; ok {
			return v
		}
		return math.NaN()
	}

	sb.WriteString("# Contrarian Strategy Analysis\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", a.GeneratedAt.UTC().Format(time.RFC3339)))
	if a.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", a.RunID))
	}

	sb.WriteString("## Performance Overview\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	for _, name := range []string{
		domain.MetricTotalReturn,
		domain.MetricAnnualizedReturn,
		domain.MetricAnnualizedVolatility,
		domain.MetricSharpe,
		MetricMaxDrawdownCalc,
		MetricCurrentDrawdown,
	} {
		sb.WriteString(fmt.Sprintf("| %s | %s |\n", name, fixed(get(name), 4)))
	}
	sb.WriteString(fmt.Sprintf("| %s | %d |\n", MetricDaysBelowAlert, d.PointsBelowAlert))
	sb.WriteString("\n")

	sb.WriteString("## Trade Diagnostics\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Trades | %d |\n", d.Trades))
	sb.WriteString(fmt.Sprintf("| Wins / Losses / Flats | %d / %d / %d |\n", d.Wins, d.Losses, d.Flats))
	sb.WriteString(fmt.Sprintf("| Win Rate | %s%% |\n", fixed(d.WinRate*100, 2)))
	sb.WriteString(fmt.Sprintf("| Average Win | %s |\n", fixed(d.AvgWin, 4)))
	sb.WriteString(fmt.Sprintf("| Average Loss | %s |\n", fixed(d.AvgLoss, 4)))
	sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", fixed(d.ProfitFactor, 4)))
	sb.WriteString(fmt.Sprintf("| Mean / Median PnL | %s / %s |\n", fixed(d.MeanPnL, 6), fixed(d.MedianPnL, 6)))
	sb.WriteString(fmt.Sprintf("| PnL StdDev | %s |\n", fixed(d.StdPnL, 6)))
	sb.WriteString(fmt.Sprintf("| PnL Skewness / Kurtosis | %s / %s |\n", fixed(d.SkewPnL, 4), fixed(d.KurtosisPnL, 4)))
	sb.WriteString(fmt.Sprintf("| Mean / Std Signed Return | %s / %s |\n", fixed(d.MeanSignedReturn, 6), fixed(d.StdSignedReturn, 6)))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Wins | %d |\n", d.MaxConsecutiveWins))
	sb.WriteString(fmt.Sprintf("| Max Consecutive Losses | %d |\n", d.MaxConsecutiveLosses))
	sb.WriteString(fmt.Sprintf("| Holding Days (avg / min / max) | %s / %d / %d |\n",
		fixed(d.AvgHoldingDays, 2), d.MinHoldingDays, d.MaxHoldingDays))
	sb.WriteString("\n")

	sb.WriteString("## Top Asset Contributors\n\n")
	if len(a.TopAssets) > 0 {
		sb.WriteString("| Asset Class | Symbol | PnL |\n")
		sb.WriteString("|-------------|--------|-----|\n")
		for _, r := range a.TopAssets {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", r.AssetClass, r.Symbol, fixed(r.PnL, 4)))
		}
	} else {
		sb.WriteString("No asset breakdown available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## PnL by Frequency\n\n")
	if len(a.ByFrequency) > 0 {
		sb.WriteString("| Frequency | PnL |\n")
		sb.WriteString("|-----------|-----|\n")
		for _, r := range a.ByFrequency {
			sb.WriteString(fmt.Sprintf("| %s | %s |\n", r.Frequency, fixed(r.PnL, 4)))
		}
	} else {
		sb.WriteString("No frequency breakdown available.\n")
	}
	sb.WriteString("\n")

	sb.WriteString("## PnL by Asset Class\n\n")
	sb.WriteString("| Asset Class | Sum | Count | Mean |\n")
	sb.WriteString("|-------------|-----|-------|------|\n")
	for _, r := range d.ByAssetClass {
		sb.WriteString(fmt.Sprintf("| %s | %s | %d | %s |\n", r.AssetClass, fixed(r.Sum, 4), r.Count, fixed(r.Mean, 6)))
	}
	sb.WriteString("\n")

	sb.WriteString("## PnL by Calendar Year\n\n")
	sb.WriteString("| Year | PnL |\n")
	sb.WriteString("|------|-----|\n")
	for _, r := range d.ByYear {
		sb.WriteString(fmt.Sprintf("| %d | %s |\n", r.Year, fixed(r.PnL, 4)))
	}
	sb.WriteString("\n")

	return sb.String()
}

// fixed formats v with prec decimals, spelling out undefined values.
func fixed(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return "n/a"
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return fmt.Sprintf("%.*f", prec, v)
}
