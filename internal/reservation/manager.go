package reservation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/storely/checkout/internal/catalog"
	"github.com/storely/checkout/internal/domain"
	"github.com/storely/checkout/internal/stock"
)

// ItemRequest is one requested line before pricing.
type ItemRequest struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Quantity  int    `json:"quantity"`
}

type adjustment struct {
	unit     domain.StockUnit
	quantity int
}

// Ticket records exactly the adjustments applied for one hold, so release
// reverses those quantities even if catalog data changes afterward.
type Ticket struct {
	Items       []domain.LineItem
	TotalAmount int64

	mu          sync.Mutex
	adjustments []adjustment
	released    bool
}

// Manager coordinates multi-item holds against the ledger with
// all-or-nothing semantics.
type Manager struct {
	ledger  stock.Ledger
	catalog catalog.Repository
	logger  *slog.Logger
}

func NewManager(ledger stock.Ledger, cat catalog.Repository, logger *slog.Logger) *Manager {
	return &Manager{ledger: ledger, catalog: cat, logger: logger}
}

// Hold prices every requested line, then decrements the ledger for each
// unit in ascending key order. If any decrement fails, the ones already
// applied are compensated in reverse order before the error is returned;
// no partial reservation outlives the call.
func (m *Manager) Hold(ctx context.Context, requests []ItemRequest) (*Ticket, error) {
	ticket := &Ticket{}

	for _, req := range requests {
		priced, err := m.catalog.ResolveUnit(ctx, req.ProductID, req.VariantID)
		if err != nil {
			return nil, err
		}

		ticket.Items = append(ticket.Items, domain.LineItem{
			ProductID:    req.ProductID,
			VariantID:    req.VariantID,
			VariantColor: priced.VariantColor,
			Quantity:     req.Quantity,
			UnitPrice:    priced.UnitPrice,
			LineTotal:    int64(req.Quantity) * priced.UnitPrice,
		})
		ticket.TotalAmount += int64(req.Quantity) * priced.UnitPrice
		ticket.adjustments = append(ticket.adjustments, adjustment{
			unit:     domain.StockUnit{ProductID: req.ProductID, VariantID: req.VariantID},
			quantity: req.Quantity,
		})
	}

	// Fixed acquisition order across all callers.
	sort.Slice(ticket.adjustments, func(i, j int) bool {
		return ticket.adjustments[i].unit.Key() < ticket.adjustments[j].unit.Key()
	})

	for i, adj := range ticket.adjustments {
		if _, err := m.ledger.Adjust(ctx, adj.unit, -adj.quantity); err != nil {
			m.rollback(ctx, ticket.adjustments[:i])
			return nil, fmt.Errorf("hold %s: %w", adj.unit.Key(), err)
		}
	}

	return ticket, nil
}

// Release reverses the ticket's adjustments. Calling it again is a no-op:
// both the expiry path and an explicit cancellation may race to release
// the same ticket.
func (m *Manager) Release(ctx context.Context, ticket *Ticket) error {
	ticket.mu.Lock()
	if ticket.released {
		ticket.mu.Unlock()
		return nil
	}
	ticket.released = true
	ticket.mu.Unlock()

	m.rollback(ctx, ticket.adjustments)
	return nil
}

func (m *Manager) rollback(ctx context.Context, applied []adjustment) {
	for i := len(applied) - 1; i >= 0; i-- {
		adj := applied[i]
		if _, err := m.ledger.Adjust(ctx, adj.unit, adj.quantity); err != nil {
			// A positive adjust only fails if the unit row vanished; log
			// and keep restoring the remaining units.
			m.logger.Error("failed to restore stock", "error", err, "unit", adj.unit.Key(), "quantity", adj.quantity)
		}
	}
}
