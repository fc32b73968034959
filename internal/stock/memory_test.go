package stock

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/storely/checkout/internal/domain"
)

func TestMemoryLedger_Adjust(t *testing.T) {
	ctx := context.Background()
	unit := domain.StockUnit{ProductID: "p1"}

	t.Run("decrement within available succeeds", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Seed(unit, 5)

		got, err := ledger.Adjust(ctx, unit, -3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 2 {
			t.Fatalf("expected available 2, got %d", got)
		}
	})

	t.Run("decrement below zero is rejected", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Seed(unit, 2)

		if _, err := ledger.Adjust(ctx, unit, -3); !errors.Is(err, domain.ErrInsufficientStock) {
			t.Fatalf("expected ErrInsufficientStock, got %v", err)
		}

		level, _ := ledger.Get(ctx, unit)
		if level.Available != 2 {
			t.Fatalf("failed adjust must not change available: got %d", level.Available)
		}
	})

	t.Run("increment always succeeds", func(t *testing.T) {
		ledger := NewMemoryLedger()
		ledger.Seed(unit, 0)

		got, err := ledger.Adjust(ctx, unit, 4)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != 4 {
			t.Fatalf("expected available 4, got %d", got)
		}
	})

	t.Run("unknown unit", func(t *testing.T) {
		ledger := NewMemoryLedger()

		if _, err := ledger.Adjust(ctx, unit, -1); !errors.Is(err, domain.ErrProductNotFound) {
			t.Fatalf("expected ErrProductNotFound, got %v", err)
		}
	})
}

func TestMemoryLedger_NoOversell(t *testing.T) {
	ctx := context.Background()
	unit := domain.StockUnit{ProductID: "p1", VariantID: "v1"}

	const initial = 50
	const workers = 200

	ledger := NewMemoryLedger()
	ledger.Seed(unit, initial)

	var wg sync.WaitGroup
	var successes int64
	var mu sync.Mutex

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := ledger.Adjust(ctx, unit, -1); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if successes != initial {
		t.Fatalf("expected exactly %d successful decrements, got %d", initial, successes)
	}

	level, _ := ledger.Get(ctx, unit)
	if level.Available != 0 {
		t.Fatalf("expected available 0, got %d", level.Available)
	}
}
