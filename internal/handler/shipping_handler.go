package handler

import (
	"encoding/json"
	"net/http"

	"lojinha/internal/model"
	"lojinha/internal/pricing"

	"github.com/rs/zerolog"
)

// ShippingHandler quotes shipping without creating an order.
type ShippingHandler struct {
	logger zerolog.Logger
}

// NewShippingHandler creates a new shipping handler.
func NewShippingHandler(logger zerolog.Logger) *ShippingHandler {
	return &ShippingHandler{logger: logger.With().Str("handler", "shipping").Logger()}
}

// Quote handles POST /api/shipping/quote requests.
func (h *ShippingHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var body struct {
		PostalCode string  `json:"postalCode"`
		WeightKg   float64 `json:"weightKg"`
		Subtotal   float64 `json:"subtotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}
	if len(body.PostalCode) < 5 {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "a valid postal code is required", h.logger)
		return
	}
	if body.WeightKg < 0 || body.Subtotal < 0 {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "weight and subtotal cannot be negative", h.logger)
		return
	}

	quote := pricing.CalculateShipping(body.PostalCode, body.WeightKg, body.Subtotal)
	writeJSON(w, http.StatusOK, quote)
}
