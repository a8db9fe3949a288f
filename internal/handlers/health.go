package handlers

import (
	"net/http"
	"time"

	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

// HealthCheck handles health check requests
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := &models.HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().Unix(),
	}
	if h.chat != nil {
		response.ChatConnected = h.chat.IsConnected()
	}

	h.writeJSON(w, response, http.StatusOK)
}
