package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// TradeStore implements storage.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *Pool
}

// NewTradeStore creates a new TradeStore.
func NewTradeStore(pool *Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Compile-time interface check.
var _ storage.TradeStore = (*TradeStore)(nil)

const insertTradeQuery = `
	INSERT INTO backtest_trades (
		run_id, trade_id, symbol, asset_class, freq_label,
		signal_time, entry_time, exit_time,
		direction, streak_len, amplitude,
		raw_weight, scaled_weight, gross_leverage,
		trade_return, signed_return, pnl
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8,
		$9, $10, $11,
		$12, $13, $14,
		$15, $16, $17
	)
`

// InsertBulk adds all trades of a run atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(ctx context.Context, runID string, trades []domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	return s.pool.inTx(ctx, func(tx pgx.Tx) error {
		for _, t := range trades {
			if t.TradeID == "" {
				return storage.ErrInvalidInput
			}
			_, err := tx.Exec(ctx, insertTradeQuery,
				runID, t.TradeID, t.Symbol, string(t.AssetClass), t.Frequency,
				t.FormationTime, t.EntryTime, t.ExitTime,
				int16(t.Direction), t.StreakLen, t.Amplitude,
				t.RawWeight, t.ScaledWeight, t.GrossLeverageAtEntry,
				t.TradeReturn, t.SignedReturn, t.PnL,
			)
			if err != nil {
				return writeError("trade "+t.TradeID, err)
			}
		}
		return nil
	})
}

// GetByRunID retrieves trades of a run in ledger order.
func (s *TradeStore) GetByRunID(ctx context.Context, runID string) ([]domain.Trade, error) {
	query := `
		SELECT
			trade_id, symbol, asset_class, freq_label,
			signal_time, entry_time, exit_time,
			direction, streak_len, amplitude,
			raw_weight, scaled_weight, gross_leverage,
			trade_return, signed_return, pnl
		FROM backtest_trades
		WHERE run_id = $1
		ORDER BY entry_time ASC, symbol ASC, freq_label ASC, signal_time ASC
	`

	rows, err := s.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get trades by run id: %w", err)
	}
	defer rows.Close()

	return scanTrades(rows)
}

// scanTrades scans multiple rows into trades.
func scanTrades(rows pgx.Rows) ([]domain.Trade, error) {
	var trades []domain.Trade

	for rows.Next() {
		var (
			t         domain.Trade
			class     string
			direction int16
		)
		err := rows.Scan(
			&t.TradeID, &t.Symbol, &class, &t.Frequency,
			&t.FormationTime, &t.EntryTime, &t.ExitTime,
			&direction, &t.StreakLen, &t.Amplitude,
			&t.RawWeight, &t.ScaledWeight, &t.GrossLeverageAtEntry,
			&t.TradeReturn, &t.SignedReturn, &t.PnL,
		)
		if err != nil {
			return nil, fmt.Errorf("scan trade row: %w", err)
		}
		t.AssetClass = domain.AssetClass(class)
		t.Direction = domain.Direction(direction)
		t.FormationTime = t.FormationTime.UTC()
		t.EntryTime = t.EntryTime.UTC()
		t.ExitTime = t.ExitTime.UTC()
		trades = append(trades, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trade rows: %w", err)
	}
	return trades, nil
}
