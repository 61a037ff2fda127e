package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"lojinha/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// OrderService is the order lifecycle surface the HTTP layer depends on.
type OrderService interface {
	Checkout(ctx context.Context, req *model.CheckoutRequest) (*model.CheckoutResponse, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	MarkProcessing(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Ship(ctx context.Context, id uuid.UUID, trackingNumber string) (*model.Order, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (*model.Order, error)
	Refund(ctx context.Context, id uuid.UUID) (*model.Order, error)
}

// OrderHandler handles checkout and order lifecycle HTTP requests.
type OrderHandler struct {
	service OrderService
	logger  zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(service OrderService, logger zerolog.Logger) *OrderHandler {
	return &OrderHandler{
		service: service,
		logger:  logger.With().Str("handler", "order").Logger(),
	}
}

// Checkout handles POST /api/checkout requests.
func (h *OrderHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req model.CheckoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	resp, err := h.service.Checkout(r.Context(), &req)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// GetByID handles GET /api/orders/{id} requests.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, model.ErrCodeInternalError, "failed to retrieve order", h.logger)
		return
	}
	if order == nil {
		writeError(w, http.StatusNotFound, model.ErrCodeOrderNotFound, "order not found", h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Process handles POST /api/orders/{id}/process requests.
func (h *OrderHandler) Process(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.MarkProcessing)
}

// Ship handles POST /api/orders/{id}/ship requests.
func (h *OrderHandler) Ship(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var body struct {
		TrackingNumber string `json:"trackingNumber"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeInvalidJSON, "invalid request body", h.logger)
		return
	}

	order, err := h.service.Ship(r.Context(), id, body.TrackingNumber)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// Deliver handles POST /api/orders/{id}/deliver requests.
func (h *OrderHandler) Deliver(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.MarkDelivered)
}

// Cancel handles POST /api/orders/{id}/cancel requests.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Cancel)
}

// Refund handles POST /api/orders/{id}/refund requests.
func (h *OrderHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.service.Refund)
}

func (h *OrderHandler) lifecycle(w http.ResponseWriter, r *http.Request, op func(context.Context, uuid.UUID) (*model.Order, error)) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := op(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "order ID is required", h.logger)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, model.ErrCodeMissingField, "invalid order ID format", h.logger)
		return uuid.Nil, false
	}
	return id, true
}
