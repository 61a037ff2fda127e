package inventory

import (
	"context"
	"sync"
	"time"

	"lojinha/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Manager runs the two-phase hold protocol on top of the ledger: a checkout
// places a hold covering every line item, and payment outcome either
// commits the hold into a permanent deduction or releases it. Holds carry a
// lease and are swept back into available stock when the checkout window
// lapses, so an abandoned cart cannot leak stock.
type Manager struct {
	ledger *Ledger

	mu     sync.Mutex
	active map[uuid.UUID]*model.Reservation

	ttl           time.Duration
	sweepInterval time.Duration
	logger        zerolog.Logger
}

// NewManager creates a reservation manager with the given lease TTL and
// sweep interval.
func NewManager(ledger *Ledger, ttl, sweepInterval time.Duration, logger zerolog.Logger) *Manager {
	return &Manager{
		ledger:        ledger,
		active:        make(map[uuid.UUID]*model.Reservation),
		ttl:           ttl,
		sweepInterval: sweepInterval,
		logger:        logger.With().Str("component", "reservation-manager").Logger(),
	}
}

// ReserveOrder holds stock for every item of an order, all or nothing. If
// any item cannot be admitted, holds already placed for the order are
// rolled back and the admission error is returned.
func (m *Manager) ReserveOrder(orderID uuid.UUID, items []model.ReservationItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.active[orderID]; ok {
		// Idempotent short-circuit: the order already holds its stock.
		return nil
	}

	for i, it := range items {
		if err := m.ledger.Reserve(it.ProductID, it.Quantity); err != nil {
			for _, held := range items[:i] {
				m.ledger.Release(held.ProductID, held.Quantity)
			}
			m.logger.Warn().
				Str("order_id", orderID.String()).
				Str("product_id", it.ProductID).
				Int("quantity", it.Quantity).
				Err(err).
				Msg("reservation rejected")
			return err
		}
	}

	now := time.Now()
	m.active[orderID] = &model.Reservation{
		ID:        uuid.New(),
		OrderID:   orderID,
		Items:     items,
		Status:    model.ReservationActive,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	m.logger.Info().
		Str("order_id", orderID.String()).
		Int("item_count", len(items)).
		Time("expires_at", now.Add(m.ttl)).
		Msg("stock reserved")

	return nil
}

// ReleaseOrder returns the order's held units to available stock. Releasing
// an order with no active hold is a no-op.
func (m *Manager) ReleaseOrder(orderID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.releaseLocked(orderID, model.ReservationReleased)
}

// CommitOrder converts the order's hold into a permanent stock deduction,
// one "out" movement per line item. A commit against a hold that was
// already released or expired returns ErrReservationConsistency; callers
// must surface it, never swallow it.
func (m *Manager) CommitOrder(orderID uuid.UUID, orderNumber string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.active[orderID]
	if !ok {
		return model.ErrReservationConsistency
	}

	// Lazy expiry check: a sweep may not have run yet.
	if res.Expired(time.Now()) {
		m.releaseLocked(orderID, model.ReservationExpired)
		return model.ErrReservationConsistency
	}

	for _, it := range res.Items {
		if err := m.ledger.Commit(it.ProductID, it.Quantity, orderNumber); err != nil {
			m.logger.Error().
				Str("order_id", orderID.String()).
				Str("product_id", it.ProductID).
				Err(err).
				Msg("commit failed mid-reservation, manual reconciliation required")
			return err
		}
	}

	res.Status = model.ReservationCommitted
	delete(m.active, orderID)

	m.logger.Info().
		Str("order_id", orderID.String()).
		Str("order_number", orderNumber).
		Msg("reservation committed")

	return nil
}

// Get returns the active reservation for an order, if any.
func (m *Manager) Get(orderID uuid.UUID) (*model.Reservation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.active[orderID]
	if !ok {
		return nil, false
	}
	cp := *res
	return &cp, true
}

// ActiveCount returns the number of live holds.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.active)
}

// Start runs the expiry sweep until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	m.logger.Info().
		Dur("interval", m.sweepInterval).
		Dur("ttl", m.ttl).
		Msg("reservation sweep started")

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.SweepExpired(time.Now())
		}
	}
}

// SweepExpired releases every hold whose lease lapsed before now. Returns
// the number of reservations released.
func (m *Manager) SweepExpired(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	released := 0
	for orderID, res := range m.active {
		if !res.Expired(now) {
			continue
		}
		m.releaseLocked(orderID, model.ReservationExpired)
		released++
		m.logger.Warn().
			Str("order_id", orderID.String()).
			Time("expired_at", res.ExpiresAt).
			Msg("reservation expired, stock released")
	}
	return released
}

// releaseLocked returns held units to the ledger and drops the record.
// Caller holds m.mu.
func (m *Manager) releaseLocked(orderID uuid.UUID, status model.ReservationStatus) {
	res, ok := m.active[orderID]
	if !ok {
		return
	}
	for _, it := range res.Items {
		m.ledger.Release(it.ProductID, it.Quantity)
	}
	res.Status = status
	delete(m.active, orderID)
}
