package domain

import "time"

const (
	TopicOrderCreated   = "order.created"
	TopicOrderConfirmed = "order.confirmed"
	TopicOrderCancelled = "order.cancelled"
)

type OrderCreatedEvent struct {
	OrderID       string        `json:"order_id"`
	CustomerID    string        `json:"customer_id"`
	Items         []LineItem    `json:"items"`
	PaymentMethod PaymentMethod `json:"payment_method"`
	TotalAmount   int64         `json:"total_amount"`
	Timestamp     time.Time     `json:"timestamp"`
}

type OrderConfirmedEvent struct {
	OrderID            string    `json:"order_id"`
	CustomerID         string    `json:"customer_id"`
	ProviderPaymentRef string    `json:"provider_payment_ref,omitempty"`
	Timestamp          time.Time `json:"timestamp"`
}

type OrderCancelledEvent struct {
	OrderID    string    `json:"order_id"`
	CustomerID string    `json:"customer_id"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}
