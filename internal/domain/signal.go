package domain

import "time"

// Direction is the side of a contrarian trade.
type Direction int

// Direction constants.
const (
	DirectionLong  Direction = 1
	DirectionShort Direction = -1
)

// String returns LONG or SHORT.
func (d Direction) String() string {
	if d == DirectionShort {
		return "SHORT"
	}
	return "LONG"
}

// SignalEvent is a directional trade candidate formed at the end of a streak.
// Immutable once produced.
type SignalEvent struct {
	Symbol        string
	AssetClass    AssetClass
	Frequency     string    // frequency label (W, M, Q, ...)
	FormationTime time.Time // period at which the streak threshold was met
	EntryTime     time.Time // one period after formation
	ExitTime      time.Time
	Direction     Direction
	StreakLen     int
	Amplitude     float64 // signed cumulative return across the formation window
}

// TradeCandidate is a sized signal waiting for portfolio allocation.
type TradeCandidate struct {
	SignalEvent
	RawWeight   float64 // magnitude only
	TradeReturn float64 // unsigned instrument return over the holding window
}
