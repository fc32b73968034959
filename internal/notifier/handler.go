package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/storely/checkout/internal/domain"
)

// Handler turns order lifecycle events into customer emails. The mail
// relay resolves customer ids to addresses.
type Handler struct {
	mailer Mailer
	logger *slog.Logger
}

func NewHandler(mailer Mailer, logger *slog.Logger) *Handler {
	return &Handler{mailer: mailer, logger: logger}
}

func (h *Handler) HandleConfirmed(ctx context.Context, payload []byte) error {
	var event domain.OrderConfirmedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order confirmed event: %w", err)
	}

	subject := "Order confirmed: " + event.OrderID
	body := fmt.Sprintf("Your order %s has been confirmed.", event.OrderID)
	if err := h.mailer.Send(ctx, event.CustomerID, subject, body); err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	h.logger.Info("confirmation email sent", "order_id", event.OrderID, "customer_id", event.CustomerID)
	return nil
}

func (h *Handler) HandleCancelled(ctx context.Context, payload []byte) error {
	var event domain.OrderCancelledEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order cancelled event: %w", err)
	}

	subject := "Order cancelled: " + event.OrderID
	body := fmt.Sprintf("Your order %s has been cancelled (%s). Any payment attempt was not captured.", event.OrderID, event.Reason)
	if err := h.mailer.Send(ctx, event.CustomerID, subject, body); err != nil {
		return fmt.Errorf("send cancellation email: %w", err)
	}

	h.logger.Info("cancellation email sent", "order_id", event.OrderID, "customer_id", event.CustomerID)
	return nil
}
