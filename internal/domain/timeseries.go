package domain

import (
	"fmt"
	"time"
)

// AssetClass selects the sizing profile applied to a symbol.
type AssetClass string

// Asset class constants. Symbols without a mapping fall back to AssetClassDefault.
const (
	AssetClassEquity    AssetClass = "EQUITY"
	AssetClassBond      AssetClass = "BOND"
	AssetClassCommodity AssetClass = "COMMO"
	AssetClassDefault   AssetClass = "DEFAULT"
)

// PricePoint is a single (timestamp, price) observation.
type PricePoint struct {
	Time  time.Time
	Price float64
}

// PriceSeries is an ordered, gap-filled price history for one symbol.
// Timestamps are strictly increasing. The engine never mutates a series.
type PriceSeries struct {
	Symbol     string
	AssetClass AssetClass
	Points     []PricePoint
}

// Len returns the number of observations.
func (s *PriceSeries) Len() int {
	return len(s.Points)
}

// Prices returns the price column in time order.
func (s *PriceSeries) Prices() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Price
	}
	return out
}

// Validate checks that timestamps are strictly increasing.
func (s *PriceSeries) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("%w: empty symbol", ErrInvalidSeries)
	}
	for i := 1; i < len(s.Points); i++ {
		if !s.Points[i].Time.After(s.Points[i-1].Time) {
			return fmt.Errorf("%w: %s timestamp %s not after %s",
				ErrInvalidSeries, s.Symbol,
				s.Points[i].Time.Format(time.RFC3339), s.Points[i-1].Time.Format(time.RFC3339))
		}
	}
	return nil
}

// PeriodClose is the last observed price inside one calendar period.
type PeriodClose struct {
	PeriodEnd    time.Time // calendar label of the period (e.g. week-ending Friday)
	LastObserved time.Time // timestamp of the observation that closed the period
	Price        float64
}
