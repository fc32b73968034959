package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/storely/checkout/internal/domain"
	"github.com/storely/checkout/internal/reservation"
)

// CustomerIDHeader carries the already-authenticated customer identity;
// authentication itself happens upstream of this service.
const (
	CustomerIDHeader = "X-Customer-Id"
	RoleHeader       = "X-User-Role"
)

// maxLineQuantity bounds one order line; it keeps quantity * unit price
// far from int64 overflow and rejects junk input before it reaches the
// ledger.
const maxLineQuantity = 10000

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type createOrderRequest struct {
	Items         []reservation.ItemRequest `json:"items"`
	Address       domain.Address            `json:"address"`
	PaymentMethod domain.PaymentMethod      `json:"payment_method"`
}

type createOrderResponse struct {
	Order            *domain.Order `json:"order"`
	ProviderOrderRef string        `json:"provider_order_ref,omitempty"`
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(CustomerIDHeader)
	if customerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(req.Items) == 0 {
		h.writeError(w, http.StatusBadRequest, "no items in order")
		return
	}
	for _, item := range req.Items {
		if item.ProductID == "" || item.Quantity <= 0 || item.Quantity > maxLineQuantity {
			h.writeError(w, http.StatusBadRequest, "invalid line item")
			return
		}
	}
	if req.PaymentMethod != domain.PaymentMethodProvider &&
		req.PaymentMethod != domain.PaymentMethodCashOnDelivery {
		h.writeError(w, http.StatusBadRequest, "invalid payment method")
		return
	}

	order, err := h.service.Place(r.Context(), PlaceOrderRequest{
		CustomerID:    customerID,
		Items:         req.Items,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrProductNotFound), errors.Is(err, domain.ErrVariantNotFound):
			h.writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, domain.ErrInsufficientStock):
			h.writeError(w, http.StatusConflict, "insufficient stock")
		case errors.Is(err, domain.ErrProviderUnavailable):
			h.writeError(w, http.StatusBadGateway, "payment provider unavailable")
		default:
			h.logger.Error("failed to place order", "error", err, "customer_id", customerID)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusCreated, createOrderResponse{
		Order:            order,
		ProviderOrderRef: order.ProviderOrderRef,
	})
}

type verifyPaymentRequest struct {
	ProviderOrderRef   string `json:"provider_order_ref"`
	ProviderPaymentRef string `json:"provider_payment_ref"`
	Signature          string `json:"signature"`
}

func (h *Handler) HandleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.ProviderOrderRef == "" || req.ProviderPaymentRef == "" || req.Signature == "" {
		h.writeError(w, http.StatusBadRequest, "missing payment fields")
		return
	}

	order, err := h.service.VerifyPayment(r.Context(), req.ProviderOrderRef, req.ProviderPaymentRef, req.Signature)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrSignatureMismatch):
			h.writeError(w, http.StatusBadRequest, "payment verification failed")
		case errors.Is(err, domain.ErrOrderNotFound):
			h.writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrAlreadyFinalized):
			h.writeError(w, http.StatusConflict, "order already finalized")
		default:
			h.logger.Error("failed to verify payment", "error", err, "provider_order_ref", req.ProviderOrderRef)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get order", "error", err, "id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if order == nil {
		h.writeError(w, http.StatusNotFound, "order not found")
		return
	}

	if r.Header.Get(RoleHeader) != "admin" && order.CustomerID != r.Header.Get(CustomerIDHeader) {
		h.writeError(w, http.StatusForbidden, "not authorized to view this order")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	customerID := r.Header.Get(CustomerIDHeader)
	if r.Header.Get(RoleHeader) == "admin" {
		customerID = ""
	} else if customerID == "" {
		h.writeError(w, http.StatusBadRequest, "missing customer id")
		return
	}

	orders, err := h.service.List(r.Context(), customerID)
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if orders == nil {
		orders = []domain.Order{}
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
