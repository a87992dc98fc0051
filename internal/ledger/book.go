// Package ledger holds the immutable trade book and its pnl breakdowns.
package ledger

import (
	"sort"

	"github.com/samber/lo"

	"contrarian-lab/internal/domain"
)

// TradeBook is an immutable, ordered ledger of executed trades.
type TradeBook struct {
	trades []domain.Trade
}

// NewTradeBook copies trades and orders them by entry time, symbol,
// frequency and formation time.
func NewTradeBook(trades []domain.Trade) *TradeBook {
	cp := make([]domain.Trade, len(trades))
	copy(cp, trades)
	sort.SliceStable(cp, func(i, j int) bool {
		a, b := cp[i], cp[j]
		if !a.EntryTime.Equal(b.EntryTime) {
			return a.EntryTime.Before(b.EntryTime)
		}
		if a.Symbol != b.Symbol {
			return a.Symbol < b.Symbol
		}
		if a.Frequency != b.Frequency {
			return a.Frequency < b.Frequency
		}
		return a.FormationTime.Before(b.FormationTime)
	})
	return &TradeBook{trades: cp}
}

// Trades returns a copy of the ledger.
func (b *TradeBook) Trades() []domain.Trade {
	out := make([]domain.Trade, len(b.trades))
	copy(out, b.trades)
	return out
}

// Len returns the number of trades.
func (b *TradeBook) Len() int {
	return len(b.trades)
}

// IDs returns trade ids in ledger order.
func (b *TradeBook) IDs() []string {
	return lo.Map(b.trades, func(t domain.Trade, _ int) string { return t.TradeID })
}

// WinRate is the fraction of trades with pnl > 0. 0 for an empty book.
func (b *TradeBook) WinRate() float64 {
	if len(b.trades) == 0 {
		return 0
	}
	wins := lo.CountBy(b.trades, func(t domain.Trade) bool { return t.IsWin() })
	return float64(wins) / float64(len(b.trades))
}

// ByAsset sums pnl per (asset class, symbol), largest pnl first.
func (b *TradeBook) ByAsset() []domain.AssetBreakdownRow {
	type key struct {
		class  domain.AssetClass
		symbol string
	}
	groups := lo.GroupBy(b.trades, func(t domain.Trade) key {
		return key{class: t.AssetClass, symbol: t.Symbol}
	})

	rows := make([]domain.AssetBreakdownRow, 0, len(groups))
	for k, trades := range groups {
		rows = append(rows, domain.AssetBreakdownRow{
			AssetClass: k.class,
			Symbol:     k.symbol,
			PnL:        sumPnL(trades),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PnL != rows[j].PnL {
			return rows[i].PnL > rows[j].PnL
		}
		if rows[i].AssetClass != rows[j].AssetClass {
			return rows[i].AssetClass < rows[j].AssetClass
		}
		return rows[i].Symbol < rows[j].Symbol
	})
	return rows
}

// ByFrequency sums pnl per frequency label, largest pnl first.
func (b *TradeBook) ByFrequency() []domain.FrequencyBreakdownRow {
	groups := lo.GroupBy(b.trades, func(t domain.Trade) string { return t.Frequency })

	rows := make([]domain.FrequencyBreakdownRow, 0, len(groups))
	for freq, trades := range groups {
		rows = append(rows, domain.FrequencyBreakdownRow{Frequency: freq, PnL: sumPnL(trades)})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].PnL != rows[j].PnL {
			return rows[i].PnL > rows[j].PnL
		}
		return rows[i].Frequency < rows[j].Frequency
	})
	return rows
}

// sumPnL folds in ledger order so repeated runs give identical bits.
func sumPnL(trades []domain.Trade) float64 {
	return lo.SumBy(trades, func(t domain.Trade) float64 { return t.PnL })
}
