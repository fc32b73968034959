package stock

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/storely/checkout/internal/domain"
)

// Reader serves the pass-through stock queries. The ledger remains the
// only mutation path; these endpoints never write.
type Reader interface {
	Get(ctx context.Context, unit domain.StockUnit) (*domain.StockLevel, error)
	List(ctx context.Context) ([]domain.StockLevel, error)
}

type Handler struct {
	reader Reader
	logger *slog.Logger
}

func NewHandler(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	levels, err := h.reader.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list stock", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if levels == nil {
		levels = []domain.StockLevel{}
	}
	h.writeJSON(w, http.StatusOK, levels)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	unit := domain.StockUnit{
		ProductID: productID,
		VariantID: r.URL.Query().Get("variant"),
	}

	level, err := h.reader.Get(r.Context(), unit)
	if err != nil {
		h.logger.Error("failed to get stock", "error", err, "unit", unit.Key())
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if level == nil {
		h.writeError(w, http.StatusNotFound, "stock unit not found")
		return
	}

	h.writeJSON(w, http.StatusOK, level)
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
