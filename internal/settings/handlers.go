package settings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/leafline/backend-leafline/internal/common"
)

// Handler wires the tax settings API.
type Handler struct {
	Svc *Service
}

// Taxes returns the live tax configuration.
func (h *Handler) Taxes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	cfg, err := h.Svc.Current()
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings unavailable", nil)
		return
	}
	common.Data(w, http.StatusOK, cfg)
}

// UpdateTaxes applies a partial tax configuration change.
func (h *Handler) UpdateTaxes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings service not configured", nil)
		return
	}
	var payload Input
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	cfg, err := h.Svc.Update(payload)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			common.JSONError(w, http.StatusUnprocessableEntity, "VALIDATION", err.Error(), nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "settings update failed", nil)
		return
	}
	common.Data(w, http.StatusOK, cfg)
}
