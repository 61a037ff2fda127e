package model

import (
	"time"

	"github.com/google/uuid"
)

// InventoryRecord holds the authoritative stock counters for one product.
// Available is derived and must equal Quantity - Reserved after every
// mutation; the ledger owns that invariant.
type InventoryRecord struct {
	ProductID     string    `json:"productId" db:"product_id"`
	Quantity      int       `json:"quantity" db:"quantity"`
	Reserved      int       `json:"reserved" db:"reserved"`
	Available     int       `json:"available" db:"available"`
	ReorderPoint  int       `json:"reorderPoint" db:"reorder_point"`
	CostPrice     float64   `json:"costPrice" db:"cost_price"`
	SellPrice     float64   `json:"sellPrice" db:"sell_price"`
	LastRestocked time.Time `json:"lastRestocked" db:"last_restocked"`
}

// MovementKind classifies a stock movement.
type MovementKind string

const (
	MovementIn         MovementKind = "in"
	MovementOut        MovementKind = "out"
	MovementAdjustment MovementKind = "adjustment"
	MovementReturn     MovementKind = "return"
)

// StockMovement is one immutable entry in the append-only movement log.
// Entries are appended in the same order the counters are mutated, so the
// log alone can reconstruct the current quantity of any product.
type StockMovement struct {
	ID        uuid.UUID    `json:"id" db:"id"`
	ProductID string       `json:"productId" db:"product_id"`
	Delta     int          `json:"delta" db:"delta"`
	Kind      MovementKind `json:"kind" db:"kind"`
	Reason    string       `json:"reason" db:"reason"`
	OrderRef  string       `json:"orderRef,omitempty" db:"order_ref"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
}

// ReservationStatus tracks the lifecycle of a stock hold.
type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationCommitted ReservationStatus = "COMMITTED"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationExpired   ReservationStatus = "EXPIRED"
)

// ReservationItem is one product hold inside a reservation.
type ReservationItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Reservation is the claim ticket binding an order to reserved units. It is
// either committed (permanent deduction on payment success) or released; it
// must never outlive its order's terminal state.
type Reservation struct {
	ID        uuid.UUID         `json:"id"`
	OrderID   uuid.UUID         `json:"orderId"`
	Items     []ReservationItem `json:"items"`
	Status    ReservationStatus `json:"status"`
	CreatedAt time.Time         `json:"createdAt"`
	ExpiresAt time.Time         `json:"expiresAt"`
}

// Expired reports whether the reservation's lease has lapsed at t.
func (r *Reservation) Expired(t time.Time) bool {
	return r.Status == ReservationActive && t.After(r.ExpiresAt)
}
