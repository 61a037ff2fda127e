package repository

import (
	"context"

	"lojinha/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// OrderRepository persists orders and their line items.
type OrderRepository interface {
	// BeginTx starts a new database transaction.
	BeginTx(ctx context.Context) (pgx.Tx, error)

	// CreateOrder inserts a new order within the provided transaction.
	CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error

	// CreateOrderItems inserts the order's line items within the provided
	// transaction.
	CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error

	// GetByID retrieves an order with its items, or nil when absent.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error)

	// GetByNumber retrieves an order by its display number, or nil.
	GetByNumber(ctx context.Context, number string) (*model.Order, error)

	// UpdateStatus persists the order's current status pair and optional
	// tracking number.
	UpdateStatus(ctx context.Context, order *model.Order) error
}

// MovementRepository persists the stock movement log. Append satisfies
// inventory.MovementSink.
type MovementRepository interface {
	Append(ctx context.Context, m model.StockMovement) error
	ListByProduct(ctx context.Context, productID string) ([]model.StockMovement, error)

	// QuantityTotals sums the log per product, for rebuilding the live
	// ledger after a restart.
	QuantityTotals(ctx context.Context) (map[string]int, error)
}

// PaymentRepository persists gateway payment transactions.
type PaymentRepository interface {
	Create(ctx context.Context, txn *model.PaymentTransaction) error
	UpdateStatus(ctx context.Context, code string, gatewayStatus int) error
	GetByCode(ctx context.Context, code string) (*model.PaymentTransaction, error)
}
