package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

type priceRow struct {
	dataset string
	symbol  string
	ts      time.Time
	price   float64
}

// PriceSeriesStore is an in-memory implementation of storage.PriceSeriesStore.
type PriceSeriesStore struct {
	mu   sync.RWMutex
	data map[string]priceRow // keyed by (dataset, symbol, ts)
}

// NewPriceSeriesStore creates a new in-memory price series store.
func NewPriceSeriesStore() *PriceSeriesStore {
	return &PriceSeriesStore{
		data: make(map[string]priceRow),
	}
}

// priceKey generates a unique key for a price observation.
func priceKey(dataset, symbol string, ts time.Time) string {
	return fmt.Sprintf("%s|%s|%d", dataset, symbol, ts.UnixNano())
}

// InsertSeries adds all points of s. Fails entire batch on duplicate.
func (s *PriceSeriesStore) InsertSeries(_ context.Context, dataset string, series *domain.PriceSeries) error {
	if series == nil || series.Symbol == "" || dataset == "" {
		return storage.ErrInvalidInput
	}
	if len(series.Points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(series.Points))

	// First pass: check for duplicates (existing + intra-batch)
	for _, p := range series.Points {
		key := priceKey(dataset, series.Symbol, p.Time)
		if _, exists := s.data[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	// Second pass: insert all
	for _, p := range series.Points {
		s.data[priceKey(dataset, series.Symbol, p.Time)] = priceRow{
			dataset: dataset,
			symbol:  series.Symbol,
			ts:      p.Time,
			price:   p.Price,
		}
	}
	return nil
}

// GetSeries retrieves all points for a symbol, ordered by ts ASC.
func (s *PriceSeriesStore) GetSeries(_ context.Context, dataset, symbol string) (*domain.PriceSeries, error) {
	out := s.collect(dataset, symbol, func(time.Time) bool { return true })
	if len(out.Points) == 0 {
		return nil, storage.ErrNotFound
	}
	return out, nil
}

// GetByTimeRange retrieves points within [start, end] (inclusive).
func (s *PriceSeriesStore) GetByTimeRange(_ context.Context, dataset, symbol string, start, end time.Time) (*domain.PriceSeries, error) {
	return s.collect(dataset, symbol, func(ts time.Time) bool {
		return !ts.Before(start) && !ts.After(end)
	}), nil
}

// ListSymbols returns the symbols of a dataset in ascending order.
func (s *PriceSeriesStore) ListSymbols(_ context.Context, dataset string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, r := range s.data {
		if r.dataset == dataset {
			seen[r.symbol] = struct{}{}
		}
	}
	symbols := make([]string, 0, len(seen))
	for sym := range seen {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)
	return symbols, nil
}

func (s *PriceSeriesStore) collect(dataset, symbol string, keep func(time.Time) bool) *domain.PriceSeries {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := &domain.PriceSeries{Symbol: symbol}
	for _, r := range s.data {
		if r.dataset == dataset && r.symbol == symbol && keep(r.ts) {
			out.Points = append(out.Points, domain.PricePoint{Time: r.ts, Price: r.price})
		}
	}
	sort.Slice(out.Points, func(i, j int) bool {
		return out.Points[i].Time.Before(out.Points[j].Time)
	})
	return out
}

var _ storage.PriceSeriesStore = (*PriceSeriesStore)(nil)
