package domain

import "math"

// Trade is an executed, cost-adjusted position.
// Created by portfolio allocation and the cost model, immutable thereafter.
type Trade struct {
	TradeID string // deterministic hash
	SignalEvent

	RawWeight            float64
	ScaledWeight         float64
	GrossLeverageAtEntry float64 // cohort gross exposure after de-levering

	TradeReturn  float64 // instrument return, direction not applied
	SignedReturn float64 // TradeReturn * Direction
	PnL          float64 // after round-trip cost
}

// HoldingDays returns whole days between entry and exit.
func (t *Trade) HoldingDays() int {
	return int(math.Floor(t.ExitTime.Sub(t.EntryTime).Hours() / 24))
}

// IsWin reports whether the trade made money after costs.
func (t *Trade) IsWin() bool {
	return t.PnL > 0
}
