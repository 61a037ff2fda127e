package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"lojinha/internal/model"

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

// writeError writes an error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, code, message string, logger zerolog.Logger) {
	logger.Error().Str("error", message).Int("status", status).Msg("handler error")
	writeJSON(w, status, model.ErrorResponse{Error: code, Message: message})
}

// writeDomainError maps a service error onto the HTTP surface. Domain
// errors carry their own code and message; anything else is an opaque
// internal error.
func writeDomainError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "internal server error", logger)
		return
	}
	writeError(w, statusForCode(de.Code), de.Code, de.Message, logger)
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeMissingField, model.ErrCodeInvalidQuantity, model.ErrCodeInvalidJSON, model.ErrCodeTrackingRequired:
		return http.StatusBadRequest
	case model.ErrCodeProductNotFound, model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeInsufficientStock, model.ErrCodeInvalidTransition, model.ErrCodeAdjustBelowHold:
		return http.StatusConflict
	case model.ErrCodeGatewayError:
		return http.StatusBadGateway
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
