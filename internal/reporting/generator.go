package reporting

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"contrarian-lab/internal/config"
	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/metrics"
)

// Generator renders result and analysis files.
type Generator struct {
	now func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator() *Generator {
	return &Generator{now: func() time.Time { return time.Now().UTC() }}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// ResultFiles renders the five output tables under the names in out.
func (g *Generator) ResultFiles(t Tables, out config.OutputConfig) (map[string]string, error) {
	return renderAll(map[string]func() (string, error){
		out.SummaryCSV: func() (string, error) { return RenderSummaryCSV(t.Summary) },
		out.EquityCSV:  func() (string, error) { return RenderEquityCSV(t.Equity) },
		out.TradesCSV:  func() (string, error) { return RenderTradesCSV(t.Trades) },
		out.ByAssetCSV: func() (string, error) { return RenderByAssetCSV(t.ByAsset) },
		out.ByFreqCSV:  func() (string, error) { return RenderByFrequencyCSV(t.ByFrequency) },
	})
}

// Analyze computes diagnostics over t.
func (g *Generator) Analyze(t Tables, runID string) (*Analysis, error) {
	diag, err := metrics.Analyze(t.Trades, t.Equity)
	if err != nil {
		return nil, fmt.Errorf("analyze trades: %w", err)
	}

	top := append([]domain.AssetBreakdownRow(nil), t.ByAsset...)
	sort.SliceStable(top, func(i, j int) bool { return top[i].PnL > top[j].PnL })
	if len(top) > TopAssetCount {
		top = top[:TopAssetCount]
	}

	return &Analysis{
		GeneratedAt: g.now(),
		RunID:       runID,
		Summary:     AnalysisSummary(t.Summary, diag),
		Diagnostics: diag,
		TopAssets:   top,
		ByFrequency: t.ByFrequency,
	}, nil
}

// AnalysisFiles renders every analysis output of a.
func (g *Generator) AnalysisFiles(a *Analysis, t Tables) (map[string]string, error) {
	d := a.Diagnostics
	files, err := renderAll(map[string]func() (string, error){
		FileTradesWithHolding: func() (string, error) { return RenderTradesWithHoldingCSV(t.Trades) },
		FileHistogram:         func() (string, error) { return RenderHistogramCSV(d.Histogram) },
		FileDrawdown:          func() (string, error) { return RenderDrawdownCSV(t.Equity, d.Drawdowns) },
		FileAnalysisSummary:   func() (string, error) { return RenderSummaryCSV(a.Summary) },
		FilePnLByYear:         func() (string, error) { return RenderYearlyCSV(d.ByYear) },
		FilePnLByAssetClass:   func() (string, error) { return RenderAssetClassCSV(d.ByAssetClass) },
		FilePnLByFrequency:    func() (string, error) { return RenderByFrequencyCSV(t.ByFrequency) },
		FilePnLByAsset:        func() (string, error) { return RenderByAssetCSV(t.ByAsset) },
	})
	if err != nil {
		return nil, err
	}
	files[FileReport] = RenderMarkdown(a)
	return files, nil
}

// renderAll runs every renderer, stopping at the first failure.
func renderAll(renderers map[string]func() (string, error)) (map[string]string, error) {
	files := make(map[string]string, len(renderers))
	for name, render := range renderers {
		body, err := render()
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", name, err)
		}
		files[name] = body
	}
	return files, nil
}

// AnalysisSummary appends the diagnostic metrics to the engine summary.
func AnalysisSummary(summary []domain.MetricValue, d *metrics.Diagnostics) []domain.MetricValue {
	out := append([]domain.MetricValue(nil), summary...)
	return append(out,
		domain.MetricValue{Metric: MetricMeanTradePnL, Value: d.MeanPnL},
		domain.MetricValue{Metric: MetricMedianTradePnL, Value: d.MedianPnL},
		domain.MetricValue{Metric: MetricAvgHoldingDays, Value: d.AvgHoldingDays},
		domain.MetricValue{Metric: MetricMaxHoldingDays, Value: float64(d.MaxHoldingDays)},
		domain.MetricValue{Metric: MetricMinHoldingDays, Value: float64(d.MinHoldingDays)},
		domain.MetricValue{Metric: MetricMaxDrawdownCalc, Value: d.MaxDrawdown},
		domain.MetricValue{Metric: MetricCurrentDrawdown, Value: d.CurrentDrawdown},
		domain.MetricValue{Metric: MetricDaysBelowAlert, Value: float64(d.PointsBelowAlert)},
		domain.MetricValue{Metric: MetricProfitFactor, Value: d.ProfitFactor},
		domain.MetricValue{Metric: MetricPnLStdDev, Value: d.StdPnL},
		domain.MetricValue{Metric: MetricPnLSkewness, Value: d.SkewPnL},
		domain.MetricValue{Metric: MetricPnLKurtosis, Value: d.KurtosisPnL},
	)
}

// summaryJSON is the JSON export of an analysis. Undefined values are null.
type summaryJSON struct {
	GeneratedAt string              `json:"generated_at"`
	RunID       string              `json:"run_id,omitempty"`
	Summary     map[string]*float64 `json:"summary"`
	Streaks     map[string]int      `json:"streaks"`
}

// RenderJSON renders the analysis summary as indented JSON.
func RenderJSON(a *Analysis) ([]byte, error) {
	payload := summaryJSON{
		GeneratedAt: a.GeneratedAt.UTC().Format(time.RFC3339),
		RunID:       a.RunID,
		Summary:     make(map[string]*float64, len(a.Summary)),
		Streaks: map[string]int{
			"max_wins":   a.Diagnostics.MaxConsecutiveWins,
			"max_losses": a.Diagnostics.MaxConsecutiveLosses,
		},
	}
	for _, m := range a.Summary {
		if math.IsNaN(m.Value) || math.IsInf(m.Value, 0) {
			payload.Summary[m.Metric] = nil
			continue
		}
		v := m.Value
		payload.Summary[m.Metric] = &v
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal summary json: %w", err)
	}
	return append(data, '\n'), nil
}

// WriteFiles writes every file under dir, creating dir if needed.
// Files are written in name order.
func WriteFiles(dir string, files map[string]string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(files[name]), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", path, err)
		}
	}
	return nil
}
