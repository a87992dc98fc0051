package memory

import (
	"context"
	"errors"
	"testing"

	"contrarian-lab/internal/domain"
	"contrarian-lab/internal/storage"
)

func TestEquityStore_InsertAndGet(t *testing.T) {
	store := NewEquityStore()
	ctx := context.Background()

	points := []domain.EquityPoint{
		{Time: day0, Value: 1.01},
		{Time: day0.AddDate(0, 0, 7), Value: 1.02},
	}
	if err := store.InsertBulk(ctx, "run1", points); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}
	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 || got[1].Value != 1.02 {
		t.Errorf("unexpected curve: %+v", got)
	}

	if err := store.InsertBulk(ctx, "run1", points); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestEquityStore_RejectsUnorderedCurve(t *testing.T) {
	points := []domain.EquityPoint{
		{Time: day0.AddDate(0, 0, 7), Value: 1.02},
		{Time: day0, Value: 1.01},
	}
	err := NewEquityStore().InsertBulk(context.Background(), "run1", points)
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
