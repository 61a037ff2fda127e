package inventory

import (
	"context"
	"sync"
	"time"

	"lojinha/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// MovementSink receives movement-log entries for durable storage. Entries
// arrive in the exact order the counters were mutated.
type MovementSink interface {
	Append(ctx context.Context, m model.StockMovement) error
}

// entry pairs one product's counters with its own lock, so concurrent
// traffic on different products never contends.
type entry struct {
	mu  sync.Mutex
	rec model.InventoryRecord
}

// Ledger owns the per-product quantity/reserved/available counters and the
// append-only movement log. It is the only shared mutable state in the
// order core; every mutation happens under the product's lock and appends
// exactly one movement before the lock is dropped.
type Ledger struct {
	mu      sync.RWMutex
	entries map[string]*entry

	movMu     sync.Mutex
	movements []model.StockMovement
	persist   chan model.StockMovement

	logger zerolog.Logger
}

// NewLedger creates an empty ledger.
func NewLedger(logger zerolog.Logger) *Ledger {
	return &Ledger{
		entries: make(map[string]*entry),
		persist: make(chan model.StockMovement, 256),
		logger:  logger.With().Str("component", "stock-ledger").Logger(),
	}
}

// Run drains movement entries to the sink until ctx is cancelled. Counter
// updates only wait on storage when the buffer is full; the channel
// preserves append order.
func (l *Ledger) Run(ctx context.Context, sink MovementSink) {
	for {
		select {
		case <-ctx.Done():
			return
		case m := <-l.persist:
			if err := sink.Append(ctx, m); err != nil {
				l.logger.Error().
					Err(err).
					Str("product_id", m.ProductID).
					Str("kind", string(m.Kind)).
					Msg("failed to persist stock movement")
			}
		}
	}
}

// Register seeds a product into the ledger. Existing records are left
// untouched.
func (l *Ledger) Register(rec model.InventoryRecord) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[rec.ProductID]; ok {
		return
	}
	rec.Available = rec.Quantity - rec.Reserved
	l.entries[rec.ProductID] = &entry{rec: rec}
}

// Get returns a copy of the product's inventory record.
func (l *Ledger) Get(productID string) (model.InventoryRecord, error) {
	e, ok := l.lookup(productID)
	if !ok {
		return model.InventoryRecord{}, model.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rec, nil
}

// Restock adds physical units and logs an "in" movement. Restocking an
// unknown product creates its record.
func (l *Ledger) Restock(productID string, qty int, notes string) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	e := l.lookupOrCreate(productID)
	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec.Quantity += qty
	e.rec.Available = e.rec.Quantity - e.rec.Reserved
	e.rec.LastRestocked = time.Now()

	l.append(model.StockMovement{
		ProductID: productID,
		Delta:     qty,
		Kind:      model.MovementIn,
		Reason:    notes,
	})

	l.logger.Info().
		Str("product_id", productID).
		Int("quantity", qty).
		Int("on_hand", e.rec.Quantity).
		Msg("stock restocked")

	return nil
}

// Adjust sets the physical quantity to newQty and logs the delta as an
// adjustment. Shrinking below the reserved amount is rejected: it would
// drive available negative and break every reservation already admitted.
func (l *Ledger) Adjust(productID string, newQty int, reason string) error {
	if newQty < 0 {
		return model.ErrInvalidQuantity
	}

	e, ok := l.lookup(productID)
	if !ok {
		return model.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if newQty < e.rec.Reserved {
		l.logger.Warn().
			Str("product_id", productID).
			Int("new_quantity", newQty).
			Int("reserved", e.rec.Reserved).
			Msg("adjustment below reserved amount rejected")
		return model.ErrAdjustBelowReserve
	}

	delta := newQty - e.rec.Quantity
	if delta == 0 {
		return nil
	}

	e.rec.Quantity = newQty
	e.rec.Available = e.rec.Quantity - e.rec.Reserved

	l.append(model.StockMovement{
		ProductID: productID,
		Delta:     delta,
		Kind:      model.MovementAdjustment,
		Reason:    reason,
	})

	l.logger.Info().
		Str("product_id", productID).
		Int("delta", delta).
		Int("on_hand", e.rec.Quantity).
		Msg("stock adjusted")

	return nil
}

// Reserve places a hold on qty units. This is the single admission-control
// gate against oversell: it succeeds only when available covers the request
// and has no side effect otherwise.
func (l *Ledger) Reserve(productID string, qty int) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	e, ok := l.lookup(productID)
	if !ok {
		return model.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.Available < qty {
		return model.ErrInsufficientStock
	}

	e.rec.Reserved += qty
	e.rec.Available = e.rec.Quantity - e.rec.Reserved
	return nil
}

// Release returns up to qty held units to available. Releasing more than is
// currently held is a no-op beyond the held amount, so double-release is
// harmless.
func (l *Ledger) Release(productID string, qty int) {
	if qty <= 0 {
		return
	}

	e, ok := l.lookup(productID)
	if !ok {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if qty > e.rec.Reserved {
		qty = e.rec.Reserved
	}
	e.rec.Reserved -= qty
	e.rec.Available = e.rec.Quantity - e.rec.Reserved
}

// Commit converts qty held units into a permanent deduction and logs an
// "out" movement tagged with the order reference. It fails if the hold no
// longer covers qty.
func (l *Ledger) Commit(productID string, qty int, orderRef string) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	e, ok := l.lookup(productID)
	if !ok {
		return model.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.rec.Reserved < qty {
		return model.ErrReservationConsistency
	}

	e.rec.Quantity -= qty
	e.rec.Reserved -= qty
	e.rec.Available = e.rec.Quantity - e.rec.Reserved

	l.append(model.StockMovement{
		ProductID: productID,
		Delta:     -qty,
		Kind:      model.MovementOut,
		Reason:    "order fulfilment",
		OrderRef:  orderRef,
	})

	l.logger.Info().
		Str("product_id", productID).
		Int("quantity", qty).
		Str("order_ref", orderRef).
		Msg("reservation committed")

	return nil
}

// Return puts previously sold units back on hand, logging a "return"
// movement tagged with the order reference.
func (l *Ledger) Return(productID string, qty int, orderRef string) error {
	if qty <= 0 {
		return model.ErrInvalidQuantity
	}

	e, ok := l.lookup(productID)
	if !ok {
		return model.ErrProductNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.rec.Quantity += qty
	e.rec.Available = e.rec.Quantity - e.rec.Reserved

	l.append(model.StockMovement{
		ProductID: productID,
		Delta:     qty,
		Kind:      model.MovementReturn,
		Reason:    "order refund",
		OrderRef:  orderRef,
	})

	return nil
}

// Movements returns the movement log for one product, oldest first.
func (l *Ledger) Movements(productID string) []model.StockMovement {
	l.movMu.Lock()
	defer l.movMu.Unlock()

	var out []model.StockMovement
	for _, m := range l.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out
}

// ReplayQuantity reconstructs the physical quantity of a product purely
// from the movement log. Used as a reconciliation check against the live
// counter.
func (l *Ledger) ReplayQuantity(productID string) int {
	total := 0
	for _, m := range l.Movements(productID) {
		total += m.Delta
	}
	return total
}

func (l *Ledger) lookup(productID string) (*entry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[productID]
	return e, ok
}

func (l *Ledger) lookupOrCreate(productID string) *entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[productID]
	if !ok {
		e = &entry{rec: model.InventoryRecord{ProductID: productID}}
		l.entries[productID] = e
	}
	return e
}

// append records a movement. Callers hold the product lock, so per-product
// log order matches counter-mutation order.
func (l *Ledger) append(m model.StockMovement) {
	m.ID = uuid.New()
	m.CreatedAt = time.Now()

	l.movMu.Lock()
	l.movements = append(l.movements, m)
	l.movMu.Unlock()

	select {
	case l.persist <- m:
	default:
		// The drainer lags behind. Block rather than drop: the movement
		// table is the source of truth for the startup rebuild, so losing
		// an entry here would silently diverge counters across restarts.
		l.logger.Warn().
			Str("product_id", m.ProductID).
			Msg("movement persistence buffer full, waiting for drain")
		l.persist <- m
	}
}
