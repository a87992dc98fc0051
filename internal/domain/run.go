package domain

import "time"

// RunRecord describes a persisted backtest run.
type RunRecord struct {
	RunID             string // deterministic hash of config and trades
	ConfigFingerprint string
	TradeCount        int
	FirstExit         time.Time
	LastExit          time.Time
	CreatedAt         time.Time
	Summary           []MetricValue // ordered as produced by the statistics engine
}
