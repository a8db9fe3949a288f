package handlers

import (
	"net/http"
	"strconv"

	"github.com/coalharbourgroup/PM-email-vcs/internal/errors"
)

const maxDeliveries = 500

// ListDeliveries returns the most recent webhook deliveries, newest first
func (h *Handler) ListDeliveries(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		h.writeAppError(w, errors.InvalidRequest("Only GET method is allowed"))
		return
	}
	if h.deliveries == nil {
		h.writeAppError(w, errors.New(errors.ErrCodeNotFound, "Delivery ledger is disabled"))
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.writeAppError(w, errors.InvalidRequest("limit must be a positive integer"))
			return
		}
		limit = min(n, maxDeliveries)
	}

	list, err := h.deliveries.Recent(r.Context(), limit)
	if err != nil {
		h.writeAppError(w, errors.DatabaseError(err))
		return
	}

	h.writeJSON(w, list, http.StatusOK)
}
