package invoice

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/leafline/backend-leafline/internal/backend"
	"github.com/leafline/backend-leafline/internal/common"
)

// Handler serves receipts for persisted sales.
type Handler struct {
	Backend backend.Client
}

// Get fetches the sale and renders its receipt.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Backend == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "invoice handler not configured", nil)
		return
	}
	saleID := strings.TrimSpace(chi.URLParam(r, "saleId"))
	if saleID == "" {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "sale id is required", nil)
		return
	}
	sale, err := h.Backend.GetSale(r.Context(), saleID)
	if err != nil {
		if errors.Is(err, backend.ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "sale not found", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "sale lookup failed", nil)
		return
	}
	common.Data(w, http.StatusOK, Build(sale))
}
