package reporting

import (
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/metrics"
)

// Tables are the five output tables of a backtest run.
type Tables struct {
	Summary     []domain.MetricValue // engine order
	Equity      []domain.EquityPoint
	Trades      []domain.Trade // ledger order
	ByAsset     []domain.AssetBreakdownRow
	ByFrequency []domain.FrequencyBreakdownRow
}

// Analysis is the diagnostics report of one run.
type Analysis struct {
	GeneratedAt time.Time
	RunID       string // empty when analysed from files

	// Summary is the engine summary followed by the diagnostic metrics.
	Summary     []domain.MetricValue
	Diagnostics *metrics.Diagnostics
	TopAssets   []domain.AssetBreakdownRow // by pnl desc, at most TopAssetCount
	ByFrequency []domain.FrequencyBreakdownRow
}

// TopAssetCount bounds the asset contributor table of the report.
const TopAssetCount = 10

// Diagnostic metric names appended to the engine summary.
const (
	MetricMeanTradePnL    = "Mean Trade PnL"
	MetricMedianTradePnL  = "Median Trade PnL"
	MetricAvgHoldingDays  = "Average Holding Days"
	MetricMaxHoldingDays  = "Max Holding Days"
	MetricMinHoldingDays  = "Min Holding Days"
	MetricMaxDrawdownCalc = "Max Drawdown (recalc)"
	MetricCurrentDrawdown = "Current Drawdown"
	MetricDaysBelowAlert  = "Days Below -5pct DD"
	MetricProfitFactor    = "Profit Factor"
	MetricPnLStdDev       = "Pnl StdDev"
	MetricPnLSkewness     = "Pnl Skewness"
	MetricPnLKurtosis     = "Pnl Kurtosis"
)

// Default analysis output file names.
const (
	FileTradesWithHolding = "trades_with_holding_days.csv"
	FileHistogram         = "pnl_histogram.csv"
	FileDrawdown          = "equity_drawdown.csv"
	FileAnalysisSummary   = "analysis_summary.csv"
	FilePnLByYear         = "pnl_by_year.csv"
	FilePnLByAssetClass   = "pnl_by_asset_class.csv"
	FilePnLByFrequency    = "pnl_by_frequency.csv"
	FilePnLByAsset        = "pnl_by_asset.csv"
	FileReport            = "analysis_report.md"
	FileSummaryJSON       = "summary.json"
)
