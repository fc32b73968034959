package orders

import (
	"context"

	"github.com/storely/checkout/internal/domain"
)

// Store persists order records. Orders are append-only: rows are created
// once and move through guarded status transitions, never deleted.
type Store interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetByProviderRef(ctx context.Context, providerOrderRef string) (*domain.Order, error)
	List(ctx context.Context, customerID string) ([]domain.Order, error)

	// ConfirmPaid transitions CREATED -> PAID / PENDING -> CONFIRMED as a
	// single guarded update; it reports false when another writer already
	// moved the order out of CREATED.
	ConfirmPaid(ctx context.Context, id, providerPaymentRef, providerSignature string) (bool, error)

	// CancelIfUnpaid transitions CREATED -> FAILED / CANCELLED under the
	// same guard; false means payment (or a previous sweep) won.
	CancelIfUnpaid(ctx context.Context, id string) (bool, error)

	// ReleaseStock restores the order's held quantities and sets
	// stock_released in one atomic claim. The in-process timer and the
	// sweep worker race to release the same order from separate processes;
	// whichever claims first does the work and the other gets false. A
	// crash mid-release leaves the flag unset so the sweep retries.
	ReleaseStock(ctx context.Context, id string, items []domain.LineItem) (bool, error)

	// FindDue lists orders whose payment window lapsed while still
	// CREATED, plus cancelled orders whose stock release did not finish.
	FindDue(ctx context.Context, limit int) ([]string, error)
}
