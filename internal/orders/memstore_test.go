package orders

import (
	"context"
	"sync"
	"time"

	"github.com/storely/checkout/internal/domain"
	"github.com/storely/checkout/internal/stock"
)

// memStore is an in-memory Store with the same guarded-transition
// semantics as the Postgres implementation. It holds the ledger so
// ReleaseStock can make the restore-and-flag claim atomic the way the
// Postgres transaction does.
type memStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	ledger *stock.MemoryLedger
}

func newMemStore(ledger *stock.MemoryLedger) *memStore {
	return &memStore{orders: make(map[string]*domain.Order), ledger: ledger}
}

func cloneOrder(o *domain.Order) *domain.Order {
	cp := *o
	cp.Items = append([]domain.LineItem(nil), o.Items...)
	if o.ExpiresAt != nil {
		t := *o.ExpiresAt
		cp.ExpiresAt = &t
	}
	return &cp
}

func (s *memStore) Create(_ context.Context, order *domain.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o, ok := s.orders[id]; ok {
		return cloneOrder(o), nil
	}
	return nil, nil
}

func (s *memStore) GetByProviderRef(_ context.Context, ref string) (*domain.Order, error) {
	if ref == "" {
		return nil, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.ProviderOrderRef == ref {
			return cloneOrder(o), nil
		}
	}
	return nil, nil
}

func (s *memStore) List(_ context.Context, customerID string) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.Order
	for _, o := range s.orders {
		if customerID == "" || o.CustomerID == customerID {
			out = append(out, *cloneOrder(o))
		}
	}
	return out, nil
}

func (s *memStore) ConfirmPaid(_ context.Context, id, paymentRef, signature string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.PaymentStatus != domain.PaymentStatusCreated {
		return false, nil
	}
	o.Status = domain.OrderStatusConfirmed
	o.PaymentStatus = domain.PaymentStatusPaid
	o.ProviderPaymentRef = paymentRef
	o.ProviderSignature = signature
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memStore) CancelIfUnpaid(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.PaymentStatus != domain.PaymentStatusCreated {
		return false, nil
	}
	o.Status = domain.OrderStatusCancelled
	o.PaymentStatus = domain.PaymentStatusFailed
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memStore) ReleaseStock(ctx context.Context, id string, items []domain.LineItem) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.StockReleased {
		return false, nil
	}
	for i := len(items) - 1; i >= 0; i-- {
		if _, err := s.ledger.Adjust(ctx, items[i].Unit(), items[i].Quantity); err != nil {
			return false, err
		}
	}
	o.StockReleased = true
	o.UpdatedAt = time.Now().UTC()
	return true, nil
}

// slowReleaseStore stretches the release claim so tests can overlap a
// second reconcile with an in-flight release.
type slowReleaseStore struct {
	*memStore
	delay time.Duration
}

func (s *slowReleaseStore) ReleaseStock(ctx context.Context, id string, items []domain.LineItem) (bool, error) {
	time.Sleep(s.delay)
	return s.memStore.ReleaseStock(ctx, id, items)
}

func (s *memStore) FindDue(_ context.Context, limit int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var ids []string
	for id, o := range s.orders {
		expired := o.PaymentStatus == domain.PaymentStatusCreated &&
			o.ExpiresAt != nil && !o.ExpiresAt.After(now)
		unreleased := o.Status == domain.OrderStatusCancelled && !o.StockReleased
		if (expired || unreleased) && len(ids) < limit {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
