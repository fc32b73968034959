package stock

import (
	"context"

	"github.com/storely/checkout/internal/domain"
)

// Ledger owns the available counters. Adjust is the only mutation path:
// a negative delta is rejected with domain.ErrInsufficientStock when it
// would take the counter below zero, and each adjustment on a unit is
// atomic with respect to every other adjustment on the same unit.
type Ledger interface {
	Adjust(ctx context.Context, unit domain.StockUnit, delta int) (int, error)
}
