package memory

import (
	"context"
	"sort"
	"sync"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

// TradeStore is an in-memory implementation of storage.TradeStore.
type TradeStore struct {
	mu   sync.RWMutex
	data map[string]map[string]domain.Trade // run_id -> trade_id -> trade
}

// NewTradeStore creates a new in-memory trade store.
func NewTradeStore() *TradeStore {
	return &TradeStore{
		data: make(map[string]map[string]domain.Trade),
	}
}

// InsertBulk adds all trades of a run atomically. Fails entire batch on any duplicate.
func (s *TradeStore) InsertBulk(_ context.Context, runID string, trades []domain.Trade) error {
	if runID == "" {
		return storage.ErrInvalidInput
	}
	if len(trades) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[runID]

	// Track keys in this batch to detect intra-batch duplicates
	batchKeys := make(map[string]struct{}, len(trades))

	// First pass: check for duplicates (existing + intra-batch)
	for _, t := range trades {
		if t.TradeID == "" {
			return storage.ErrInvalidInput
		}
		if _, exists := existing[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[t.TradeID]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[t.TradeID] = struct{}{}
	}

	// Second pass: insert all
	if existing == nil {
		existing = make(map[string]domain.Trade, len(trades))
		s.data[runID] = existing
	}
	for _, t := range trades {
		existing[t.TradeID] = t
	}
	return nil
}

// GetByRunID retrieves trades of a run in ledger order.
func (s *TradeStore) GetByRunID(_ context.Context, runID string) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Trade, 0, len(s.data[runID]))
	for _, t := range s.data[runID] {
		result = append(result, t)
	}
	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
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
	return result, nil
}

var _ storage.TradeStore = (*TradeStore)(nil)
