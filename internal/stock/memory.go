package stock

import (
	"context"
	"sync"

	"github.com/storely/checkout/internal/domain"
)

// MemoryLedger keeps counters in process memory behind per-unit mutexes.
// It backs unit tests and local runs without Postgres.
type MemoryLedger struct {
	mu    sync.Mutex
	units map[string]*memoryUnit
}

type memoryUnit struct {
	mu        sync.Mutex
	unit      domain.StockUnit
	available int
}

func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{units: make(map[string]*memoryUnit)}
}

// Seed sets a unit's counter, creating the unit if needed.
func (l *MemoryLedger) Seed(unit domain.StockUnit, available int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.units[unit.Key()] = &memoryUnit{unit: unit, available: available}
}

func (l *MemoryLedger) Adjust(_ context.Context, unit domain.StockUnit, delta int) (int, error) {
	l.mu.Lock()
	u, ok := l.units[unit.Key()]
	l.mu.Unlock()
	if !ok {
		return 0, domain.ErrProductNotFound
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if u.available+delta < 0 {
		return 0, domain.ErrInsufficientStock
	}
	u.available += delta
	return u.available, nil
}

func (l *MemoryLedger) Get(_ context.Context, unit domain.StockUnit) (*domain.StockLevel, error) {
	l.mu.Lock()
	u, ok := l.units[unit.Key()]
	l.mu.Unlock()
	if !ok {
		return nil, nil
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	return &domain.StockLevel{Unit: u.unit, Available: u.available}, nil
}
