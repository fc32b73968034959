package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusCreated PaymentStatus = "CREATED"
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

type PaymentMethod string

const (
	PaymentMethodProvider       PaymentMethod = "PROVIDER"
	PaymentMethodCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
)

// LineItem is immutable once its order is created. Amounts are in minor
// currency units.
type LineItem struct {
	ProductID    string `json:"product_id"`
	VariantID    string `json:"variant_id,omitempty"`
	VariantColor string `json:"variant_color,omitempty"`
	Quantity     int    `json:"quantity"`
	UnitPrice    int64  `json:"unit_price"`
	LineTotal    int64  `json:"line_total"`
}

func (li LineItem) Unit() StockUnit {
	return StockUnit{ProductID: li.ProductID, VariantID: li.VariantID}
}

type Address struct {
	Name        string `json:"name"`
	Mobile      string `json:"mobile"`
	State       string `json:"state"`
	City        string `json:"city"`
	Pincode     string `json:"pincode"`
	FullAddress string `json:"full_address"`
}

type Order struct {
	ID                 string        `json:"id"`
	CustomerID         string        `json:"customer_id"`
	Items              []LineItem    `json:"items"`
	Address            Address       `json:"address"`
	TotalAmount        int64         `json:"total_amount"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	Status             OrderStatus   `json:"status"`
	PaymentStatus      PaymentStatus `json:"payment_status"`
	ProviderOrderRef   string        `json:"provider_order_ref,omitempty"`
	ProviderPaymentRef string        `json:"provider_payment_ref,omitempty"`
	ProviderSignature  string        `json:"-"`
	ExpiresAt          *time.Time    `json:"expires_at,omitempty"`
	StockReleased      bool          `json:"-"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}
