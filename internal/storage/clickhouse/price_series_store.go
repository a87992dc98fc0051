package clickhouse

import (
	"context"
	"fmt"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// PriceSeriesStore implements storage.PriceSeriesStore using ClickHouse.
type PriceSeriesStore struct {
	conn *Conn
}

// NewPriceSeriesStore creates a new PriceSeriesStore.
func NewPriceSeriesStore(conn *Conn) *PriceSeriesStore {
	return &PriceSeriesStore{conn: conn}
}

// InsertSeries adds all points of series under dataset.
// Fails the whole batch if any timestamp already exists for the symbol.
func (s *PriceSeriesStore) InsertSeries(ctx context.Context, dataset string, series *domain.PriceSeries) error {
	if series == nil || series.Symbol == "" || dataset == "" {
		return storage.ErrInvalidInput
	}
	if len(series.Points) == 0 {
		return nil
	}

	// Intra-batch duplicates
	seen := make(map[int64]struct{}, len(series.Points))
	first, last := series.Points[0].Time, series.Points[0].Time
	for _, p := range series.Points {
		key := p.Time.UnixMilli()
		if _, ok := seen[key]; ok {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		if p.Time.Before(first) {
			first = p.Time
		}
		if p.Time.After(last) {
			last = p.Time
		}
	}

	// Existing rows in the batch window
	rows, err := s.conn.Query(ctx, `
		SELECT ts FROM price_series
		WHERE dataset = ? AND symbol = ? AND ts >= ? AND ts <= ?
	`, dataset, series.Symbol, first.UTC(), last.UTC())
	if err != nil {
		return fmt.Errorf("check existing points: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var ts time.Time
		if err := rows.Scan(&ts); err != nil {
			return fmt.Errorf("scan existing point: %w", err)
		}
		if _, ok := seen[ts.UnixMilli()]; ok {
			return storage.ErrDuplicateKey
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate existing points: %w", err)
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO price_series (dataset, symbol, ts, price)")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, p := range series.Points {
		if err := batch.Append(dataset, series.Symbol, p.Time.UTC(), p.Price); err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetSeries retrieves all points for a symbol, ordered by ts ASC.
// Returns storage.ErrNotFound when the symbol has no rows.
func (s *PriceSeriesStore) GetSeries(ctx context.Context, dataset, symbol string) (*domain.PriceSeries, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT ts, price FROM price_series FINAL
		WHERE dataset = ? AND symbol = ?
		ORDER BY ts ASC
	`, dataset, symbol)
	if err != nil {
		return nil, fmt.Errorf("query price series: %w", err)
	}
	defer rows.Close()

	out, err := scanSeries(rows, symbol)
	if err != nil {
		return nil, err
	}
	if len(out.Points) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(ctx context.Context, dataset, symbol string, start, end time.Time) (*domain.PriceSeries, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT ts, price FROM price_series FINAL
		WHERE dataset = ? AND symbol = ? AND ts >= ? AND ts <= ?
		ORDER BY ts ASC
	`, dataset, symbol, start.UTC(), end.UTC())
	if err != nil {
		return nil, fmt.Errorf("query price series range: %w", err)
	}
	defer rows.Close()

	return scanSeries(rows, symbol)
}

// ListSymbols returns the symbols of a dataset in ascending order.
func (s *PriceSeriesStore) ListSymbols(ctx context.Context, dataset string) ([]string, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT DISTINCT symbol FROM price_series
		WHERE dataset = ?
		ORDER BY symbol ASC
	`, dataset)
	if err != nil {
		return nil, fmt.Errorf("query symbols: %w", err)
	}
	defer rows.Close()

	var symbols []string
	for rows.Next() {
		var sym string
		if err := rows.Scan(&sym); err != nil {
			return nil, fmt.Errorf("scan symbol: %w", err)
		}
		symbols = append(symbols, sym)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate symbols: %w", err)
	}
	return symbols, nil
}

func scanSeries(rows chRows, symbol string) (*domain.PriceSeries, error) {
	out := &domain.PriceSeries{Symbol: symbol}
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Time, &p.Price); err != nil {
			return nil, fmt.Errorf("scan price point: %w", err)
		}
		p.Time = p.Time.UTC()
		out.Points = append(out.Points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate price points: %w", err)
	}
	return out, nil
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
