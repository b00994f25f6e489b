package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/lky8/entries-shop/backend/internal/core/ports"
	"github.com/lky8/entries-shop/backend/internal/payments/clients"
	"github.com/lky8/entries-shop/backend/internal/usecases"
)

// PaymentWebhook receives the processor's signed payment-status callbacks.
func (h *HTTPHandler) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Invalid request method")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, ports.MaxWebhookBodyBytes))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to read webhook body", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	err = h.webhookService.Process(r.Context(), payload, r.Header.Get(ports.SignatureHeader))
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	case errors.Is(err, clients.ErrMalformedPayload):
		h.logger.ErrorContext(r.Context(), "Invalid JSON payload", "error", err)
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
	case errors.Is(err, usecases.ErrMissingSignature):
		h.logger.DebugContext(r.Context(), "Missing signature")
		writeError(w, http.StatusBadRequest, "Missing signature")
	case errors.Is(err, clients.ErrInvalidSignature):
		h.logger.DebugContext(r.Context(), "Invalid signature")
		writeError(w, http.StatusBadRequest, "Invalid signature")
	case errors.Is(err, usecases.ErrOrderNotFound):
		writeError(w, http.StatusNotFound, "Order not found")
	case errors.Is(err, usecases.ErrPaymentNotFound):
		writeError(w, http.StatusNotFound, "Payment record not found")
	default:
		h.logger.ErrorContext(r.Context(), "Webhook processing error", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
