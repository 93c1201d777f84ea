package checkout

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leafline/backend-leafline/internal/cart"
	"github.com/leafline/backend-leafline/internal/common"
	"github.com/leafline/backend-leafline/internal/tax"
)

// Handler wires checkout to HTTP.
type Handler struct {
	Svc *Service
}

// Checkout completes the sale for a cart.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "checkout service not configured", nil)
		return
	}
	var payload Input
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	out, err := h.Svc.Create(r.Context(), payload)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": map[string]any{
		"sale":    out.Sale,
		"status":  out.Status,
		"display": tax.FormatCurrency(out.Sale.Totals.GrandTotal),
	}})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, cart.ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", "cart not found", nil)
	case errors.Is(err, cart.ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart has no items", nil)
	case errors.Is(err, ErrDuplicate):
		common.JSONError(w, http.StatusConflict, "DUPLICATE", "cart already checked out", nil)
	default:
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "sale could not be submitted", nil)
	}
}
