package handler

import (
	"encoding/json"
	"net/http"

	"lojinha/internal/inventory"
	"lojinha/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// InventoryHandler exposes the stock ledger over HTTP.
type InventoryHandler struct {
	ledger *inventory.Ledger
	logger zerolog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(ledger *inventory.Ledger, logger zerolog.Logger) *InventoryHandler {
	return &InventoryHandler{
		ledger: ledger,
		logger: logger.With().Str("handler", "inventory").Logger(),
	}
}

// Get handles GET /api/inventory/{productId} requests.
func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	rec, err := h.ledger.Get(productID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Restock handles POST /api/inventory/{productId}/restock requests.
func (h *InventoryHandler) Restock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var body struct {
		Quantity int    `json:"quantity"`
		Notes    string `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if err := h.ledger.Restock(productID, body.Quantity, body.Notes); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	rec, err := h.ledger.Get(productID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Adjust handles POST /api/inventory/{productId}/adjust requests. The body
// carries the absolute new quantity, not a delta.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	var body struct {
		Quantity int    `json:"quantity"`
		Reason   string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	if err := h.ledger.Adjust(productID, body.Quantity, body.Reason); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	rec, err := h.ledger.Get(productID)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Movements handles GET /api/inventory/{productId}/movements requests.
func (h *InventoryHandler) Movements(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	if _, err := h.ledger.Get(productID); err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	movements := h.ledger.Movements(productID)
	if movements == nil {
		movements = []model.StockMovement{}
	}
	writeJSON(w, http.StatusOK, movements)
}
