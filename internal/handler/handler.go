package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"voucher-api/internal/middleware"
	"voucher-api/internal/model"

	"github.com/rs/zerolog"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but don't expose it to the client
		return
	}
}

// writeError writes a standardised error response with the given status code.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, logger zerolog.Logger) {
	correlationID := middleware.CorrelationIDFromContext(r.Context())

	logger.Error().
		Str("error", code).
		Str("message", message).
		Int("status", status).
		Str("correlation_id", correlationID).
		Msg("handler error")

	writeJSON(w, status, model.ErrorResponse{
		Error:         code,
		Message:       message,
		CorrelationID: correlationID,
	})
}

// writeServiceError maps a service-layer error onto an HTTP response.
// Transient storage faults are retryable and answered with 503; expected
// business failures carry their domain code; anything else is a 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	var transient *model.TransientError
	if errors.As(err, &transient) {
		writeError(w, r, http.StatusServiceUnavailable,
			model.ErrCodeStorageUnavailable, "voucher storage temporarily unavailable, retry safe", logger)
		return
	}

	var derr *model.DomainError
	if errors.As(err, &derr) {
		status := http.StatusBadRequest
		switch derr.Code {
		case model.ErrCodeDuplicateCode:
			status = http.StatusConflict
		case model.ErrCodeReplayConflict:
			status = http.StatusInternalServerError
		}
		writeError(w, r, status, derr.Code, derr.Message, logger)
		return
	}

	writeError(w, r, http.StatusInternalServerError,
		model.ErrCodeInternalError, "internal server error", logger)
}
