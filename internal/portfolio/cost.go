package portfolio

import (
	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/idhash"
)

// CostModel charges a fixed round-trip cost on notional exposure.
type CostModel struct {
	CostFrac float64
}

// NewCostModel converts basis points into a cost fraction.
func NewCostModel(roundTripBps float64) CostModel {
	return CostModel{CostFrac: roundTripBps / 10000.0}
}

// PnL returns the direction-applied return and the cost-adjusted pnl of a
// position. Cost is charged regardless of direction or outcome.
func (m CostModel) PnL(weight, tradeReturn float64, dir domain.Direction) (signed, pnl float64) {
	signed = tradeReturn * float64(dir)
	pnl = weight*signed - weight*m.CostFrac
	return signed, pnl
}

// Execute turns allocated cohorts into trades, in cohort then member order.
func Execute(cohorts []Cohort, model CostModel) []domain.Trade {
	n := 0
	for _, c := range cohorts {
		n += len(c.Members)
	}

	trades := make([]domain.Trade, 0, n)
	for _, c := range cohorts {
		leverage := c.GrossLeverage()
		for _, m := range c.Members {
			scaled := m.RawWeight * c.Scale
			signed, pnl := model.PnL(scaled, m.TradeReturn, m.Direction)
			trades = append(trades, domain.Trade{
				TradeID: idhash.ComputeTradeID(
					m.Symbol,
					m.Frequency,
					m.FormationTime.UnixNano(),
					m.EntryTime.UnixNano(),
					int(m.Direction),
				),
				SignalEvent:          m.SignalEvent,
				RawWeight:            m.RawWeight,
				ScaledWeight:         scaled,
				GrossLeverageAtEntry: leverage,
				TradeReturn:          m.TradeReturn,
				SignedReturn:         signed,
				PnL:                  pnl,
			})
		}
	}
	return trades
}
