package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/coalharbourgroup/PM-email-vcs/internal/errors"
	"github.com/coalharbourgroup/PM-email-vcs/internal/models"
)

// writeJSON writes a JSON response with the given status code
func (h *Handler) writeJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error("Failed to encode JSON response", err)
	}
}

// writeText writes a plain text response with the given status code
func (h *Handler) writeText(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(msg))
}

// writeAppError writes an application error response. Webhook validation
// rejections are plain text, everything else is a JSON ErrorResponse.
func (h *Handler) writeAppError(w http.ResponseWriter, appErr *errors.AppError) {
	h.log.With("error_code", appErr.Code).
		With("status_code", appErr.StatusCode).
		Error(appErr.Message, appErr.Err)

	if appErr.IsValidation() {
		h.writeText(w, appErr.Message, appErr.StatusCode)
		return
	}

	response := &models.ErrorResponse{
		Error:   appErr.Message,
		Code:    string(appErr.Code),
		Details: appErr.Details,
	}
	if response.Details == "" && appErr.Err != nil {
		response.Details = appErr.Err.Error()
	}

	h.writeJSON(w, response, appErr.StatusCode)
}
