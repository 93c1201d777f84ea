package report

import (
	"errors"
	"net/http"
	"time"

	"github.com/leafline/backend-leafline/internal/common"
)

// Handler serves tax remittance reports.
type Handler struct {
	Svc *Service
}

// Taxes handles GET /reports/taxes?from=&to=. Dates accept RFC 3339 or a
// bare YYYY-MM-DD; a bare "to" date covers the whole day.
func (h *Handler) Taxes(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "report service not configured", nil)
		return
	}
	from, fromOK := parseRangeBound(r.URL.Query().Get("from"), false)
	to, toOK := parseRangeBound(r.URL.Query().Get("to"), true)
	if !fromOK || !toOK {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from and to must be RFC 3339 timestamps or YYYY-MM-DD dates", nil)
		return
	}
	out, err := h.Svc.Taxes(r.Context(), from, to)
	if err != nil {
		if errors.Is(err, ErrInvalidRange) {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "from must not be after to", nil)
			return
		}
		common.JSONError(w, http.StatusBadGateway, "UPSTREAM", "sales could not be listed", nil)
		return
	}
	common.Data(w, http.StatusOK, out)
}

func parseRangeBound(raw string, endOfDay bool) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, false
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, true
	}
	day, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), true
	}
	return day, true
}
