package domain

import "time"

// EquityPoint is one value of the compounding NAV series.
type EquityPoint struct {
	Time  time.Time
	Value float64
}

// Summary metric names. Downstream reporting depends on these exact labels.
const (
	MetricTotalReturn          = "Total Return"
	MetricAnnualizedReturn     = "Annualized Return"
	MetricAnnualizedVolatility = "Annualized Volatility"
	MetricSharpe               = "Sharpe (approx)"
	MetricMaxDrawdown          = "Max Drawdown"
	MetricWinRate              = "Win Rate"
	MetricTrades               = "Trades"
)

// MetricValue is a named summary statistic in fractional units.
// NaN marks an undefined value.
type MetricValue struct {
	Metric string
	Value  float64
}

// AssetBreakdownRow is realized pnl by (asset class, symbol).
type AssetBreakdownRow struct {
	AssetClass AssetClass
	Symbol     string
	PnL        float64
}

// FrequencyBreakdownRow is realized pnl by frequency label.
type FrequencyBreakdownRow struct {
	Frequency string
	PnL       float64
}
