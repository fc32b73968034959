package orders

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/storely/checkout/internal/domain"
	"github.com/storely/checkout/internal/payments"
	"github.com/storely/checkout/internal/reservation"
	"github.com/storely/checkout/internal/telemetry"
)

// EventPublisher pushes order lifecycle events onto the bus. Publishing
// is best-effort: failures are logged, never surfaced to the customer.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// TimerScheduler is the in-process expiry timer facility.
type TimerScheduler interface {
	Arm(orderID string, d time.Duration)
	Disarm(orderID string)
}

type PlaceOrderRequest struct {
	CustomerID    string
	Items         []reservation.ItemRequest
	Address       domain.Address
	PaymentMethod domain.PaymentMethod
}

type Service struct {
	store        Store
	reservations *reservation.Manager
	provider     payments.Provider
	signer       *payments.Signer
	publisher    EventPublisher
	scheduler    TimerScheduler
	metrics      *telemetry.Metrics
	window       time.Duration
	logger       *slog.Logger
}

func NewService(
	store Store,
	reservations *reservation.Manager,
	provider payments.Provider,
	signer *payments.Signer,
	publisher EventPublisher,
	metrics *telemetry.Metrics,
	paymentWindow time.Duration,
	logger *slog.Logger,
) *Service {
	return &Service{
		store:        store,
		reservations: reservations,
		provider:     provider,
		signer:       signer,
		publisher:    publisher,
		metrics:      metrics,
		window:       paymentWindow,
		logger:       logger,
	}
}

// SetScheduler wires the timer facility. The scheduler needs the
// service's Reconcile, so it is attached after construction.
func (s *Service) SetScheduler(scheduler TimerScheduler) {
	s.scheduler = scheduler
}

// Place reserves stock for every line, creates the provider order when
// the method requires payment, and persists the record. The hold is
// rolled back on any later failure in the same call.
func (s *Service) Place(ctx context.Context, req PlaceOrderRequest) (*domain.Order, error) {
	ticket, err := s.reservations.Hold(ctx, req.Items)
	if err != nil {
		s.metrics.ReservationFailed(ctx)
		return nil, err
	}

	now := time.Now().UTC()
	order := &domain.Order{
		ID:            uuid.New().String(),
		CustomerID:    req.CustomerID,
		Items:         ticket.Items,
		Address:       req.Address,
		TotalAmount:   ticket.TotalAmount,
		PaymentMethod: req.PaymentMethod,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if req.PaymentMethod == domain.PaymentMethodCashOnDelivery {
		// No payment step: confirmed immediately, settled on delivery.
		order.Status = domain.OrderStatusConfirmed
		order.PaymentStatus = domain.PaymentStatusPending
	} else {
		providerRef, err := s.provider.CreateOrder(ctx, ticket.TotalAmount, "rcpt_"+order.ID)
		if err != nil {
			_ = s.reservations.Release(ctx, ticket)
			s.logger.Error("provider order creation failed", "error", err, "order_id", order.ID)
			return nil, fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
		}
		order.Status = domain.OrderStatusPending
		order.PaymentStatus = domain.PaymentStatusCreated
		order.ProviderOrderRef = providerRef
		expiresAt := now.Add(s.window)
		order.ExpiresAt = &expiresAt
	}

	if err := s.store.Create(ctx, order); err != nil {
		_ = s.reservations.Release(ctx, ticket)
		return nil, fmt.Errorf("persist order: %w", err)
	}

	if order.PaymentStatus == domain.PaymentStatusCreated && s.scheduler != nil {
		s.scheduler.Arm(order.ID, s.window)
	}

	s.metrics.OrderPlaced(ctx, string(req.PaymentMethod))
	s.publish(ctx, domain.TopicOrderCreated, order.ID, domain.OrderCreatedEvent{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Items:         order.Items,
		PaymentMethod: order.PaymentMethod,
		TotalAmount:   order.TotalAmount,
		Timestamp:     now,
	})

	s.logger.Info("order placed",
		"order_id", order.ID,
		"customer_id", order.CustomerID,
		"payment_method", order.PaymentMethod,
		"total_amount", order.TotalAmount)

	return order, nil
}

// VerifyPayment validates the provider callback and applies it at most
// once. Duplicate callbacks for a paid order return the stored record
// unchanged; callbacks for a cancelled order are a guarded no-op.
func (s *Service) VerifyPayment(ctx context.Context, providerOrderRef, providerPaymentRef, signature string) (*domain.Order, error) {
	if err := s.signer.Verify(providerOrderRef, providerPaymentRef, signature); err != nil {
		s.logger.Warn("payment signature mismatch",
			"provider_order_ref", providerOrderRef,
			"provider_payment_ref", providerPaymentRef)
		return nil, err
	}

	order, err := s.store.GetByProviderRef(ctx, providerOrderRef)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrOrderNotFound
	}

	if order.PaymentStatus == domain.PaymentStatusPaid {
		return order, nil
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.ErrAlreadyFinalized
	}

	won, err := s.store.ConfirmPaid(ctx, order.ID, providerPaymentRef, signature)
	if err != nil {
		return nil, err
	}
	if !won {
		// Raced with the expiry path or a duplicate callback; re-read to
		// tell which.
		current, err := s.store.GetByID(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		if current != nil && current.PaymentStatus == domain.PaymentStatusPaid {
			return current, nil
		}
		return nil, domain.ErrAlreadyFinalized
	}

	if s.scheduler != nil {
		s.scheduler.Disarm(order.ID)
	}

	s.metrics.PaymentVerified(ctx)
	s.publish(ctx, domain.TopicOrderConfirmed, order.ID, domain.OrderConfirmedEvent{
		OrderID:            order.ID,
		CustomerID:         order.CustomerID,
		ProviderPaymentRef: providerPaymentRef,
		Timestamp:          time.Now().UTC(),
	})

	s.logger.Info("payment verified", "order_id", order.ID, "provider_order_ref", providerOrderRef)

	return s.store.GetByID(ctx, order.ID)
}

// Reconcile resolves one order whose payment window may have lapsed. The
// guard re-checks state, so it is safe to run late, repeatedly, or
// concurrently with VerifyPayment: whichever writer observes CREATED
// first wins and the loser no-ops.
func (s *Service) Reconcile(ctx context.Context, orderID string) error {
	order, err := s.store.GetByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return nil
	}

	switch {
	case order.PaymentStatus == domain.PaymentStatusCreated:
		won, err := s.store.CancelIfUnpaid(ctx, orderID)
		if err != nil {
			return err
		}
		if !won {
			return nil
		}
		return s.releaseAndFinish(ctx, order)

	case order.Status == domain.OrderStatusCancelled && !order.StockReleased:
		// A previous pass cancelled but did not finish releasing.
		return s.releaseAndFinish(ctx, order)
	}

	return nil
}

func (s *Service) releaseAndFinish(ctx context.Context, order *domain.Order) error {
	won, err := s.store.ReleaseStock(ctx, order.ID, order.Items)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	if !won {
		// The timer and the sweep both got here; the other claimed it.
		return nil
	}

	s.metrics.OrderReconciled(ctx)
	s.publish(ctx, domain.TopicOrderCancelled, order.ID, domain.OrderCancelledEvent{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Reason:     "payment window expired",
		Timestamp:  time.Now().UTC(),
	})

	s.logger.Info("order cancelled", "order_id", order.ID, "reason", "payment window expired")
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.store.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, customerID string) ([]domain.Order, error) {
	return s.store.List(ctx, customerID)
}

func (s *Service) publish(ctx context.Context, topic, key string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, topic, key, event); err != nil {
		s.logger.Error("failed to publish event", "error", err, "topic", topic, "key", key)
	}
}
