package router

import (
	"net/http"

	"lojinha/internal/handler"
	"lojinha/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// New creates a new HTTP router with all routes and middleware configured.
func New(
	orderHandler *handler.OrderHandler,
	inventoryHandler *handler.InventoryHandler,
	shippingHandler *handler.ShippingHandler,
	webhookHandler *handler.WebhookHandler,
	apiKey string,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> Logging -> CORS -> APIKeyAuth.
	// APIKeyAuth itself exempts /health and /webhooks/.
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)
	r.Use(middleware.APIKeyAuth(apiKey, logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})

	r.Post("/api/checkout", orderHandler.Checkout)

	r.Route("/api/orders/{id}", func(r chi.Router) {
		r.Get("/", orderHandler.GetByID)
		r.Post("/process", orderHandler.Process)
		r.Post("/ship", orderHandler.Ship)
		r.Post("/deliver", orderHandler.Deliver)
		r.Post("/cancel", orderHandler.Cancel)
		r.Post("/refund", orderHandler.Refund)
	})

	r.Route("/api/inventory/{productId}", func(r chi.Router) {
		r.Get("/", inventoryHandler.Get)
		r.Post("/restock", inventoryHandler.Restock)
		r.Post("/adjust", inventoryHandler.Adjust)
		r.Get("/movements", inventoryHandler.Movements)
	})

	r.Post("/api/shipping/quote", shippingHandler.Quote)

	// Gateway callbacks arrive unauthenticated; the handler fetches the
	// notification back from the gateway before acting on it.
	r.Post("/webhooks/payment", webhookHandler.Payment)

	return r
}
