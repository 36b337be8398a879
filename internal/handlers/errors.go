package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/skillswap/backend/internal/models"
	"github.com/skillswap/backend/internal/services"
)

type errorResponse struct {
	Error       string                    `json:"error"`
	Reason      string                    `json:"reason,omitempty"`
	Transaction *models.LedgerTransaction `json:"transaction,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidTransfer), errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrInsufficientFunds), errors.Is(err, models.ErrPaymentDeclined):
		return http.StatusPaymentRequired
	case errors.Is(err, models.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrDuplicateListing):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err with its mapped status. Internal failures are
// logged and never echoed to the client.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	if log == nil {
		log = slog.Default()
	}
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}

	var declined *models.PaymentDeclinedError
	if errors.As(err, &declined) {
		resp.Error = models.ErrPaymentDeclined.Error()
		resp.Reason = declined.Reason
	}
	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", "error", err)
		resp.Error = "internal error"
	case http.StatusServiceUnavailable:
		log.Warn("store unavailable", "error", err)
		resp.Error = models.ErrStoreUnavailable.Error()
	}
	writeJSON(w, status, resp)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}
