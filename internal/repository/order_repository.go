package repository

import (
	"context"
	"errors"
	"fmt"

	"lojinha/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// orderRepository implements OrderRepository using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// BeginTx starts a new database transaction.
func (r *orderRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return tx, nil
}

// CreateOrder inserts a new order within the provided transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, tx pgx.Tx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, number, customer_name, customer_email, customer_phone, user_id,
			subtotal, shipping_cost, discount, total, status, payment_status,
			coupon_code, referral_code, tracking_number, postal_code,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := tx.Exec(ctx, query,
		order.ID, order.Number,
		order.Customer.Name, order.Customer.Email, order.Customer.Phone, order.Customer.UserID,
		order.Subtotal, order.ShippingCost, order.Discount, order.Total,
		order.Status, order.PaymentStatus,
		order.CouponCode, order.ReferralCode, order.TrackingNumber, order.PostalCode,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("number", order.Number).
		Msg("order created")

	return nil
}

// CreateOrderItems inserts the line items within the provided transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, tx pgx.Tx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, name, quantity, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Name, item.Quantity, item.UnitPrice)
	}

	results := tx.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created")

	return nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	return r.getOne(ctx, "id = $1", id)
}

// GetByNumber retrieves an order by its display number along with its items.
func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	return r.getOne(ctx, "number = $1", number)
}

func (r *orderRepository) getOne(ctx context.Context, where string, arg any) (*model.Order, error) {
	query := `
		SELECT id, number, customer_name, customer_email, customer_phone, user_id,
		       subtotal, shipping_cost, discount, total, status, payment_status,
		       coupon_code, referral_code, tracking_number, postal_code,
		       created_at, updated_at
		FROM orders
		WHERE ` + where

	var order model.Order
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&order.ID, &order.Number,
		&order.Customer.Name, &order.Customer.Email, &order.Customer.Phone, &order.Customer.UserID,
		&order.Subtotal, &order.ShippingCost, &order.Discount, &order.Total,
		&order.Status, &order.PaymentStatus,
		&order.CouponCode, &order.ReferralCode, &order.TrackingNumber, &order.PostalCode,
		&order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, name, quantity, unit_price
		FROM order_items
		WHERE order_id = $1
	`
	rows, err := r.pool.Query(ctx, itemsQuery, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read order items: %w", err)
	}

	return &order, nil
}

// UpdateStatus persists the current status pair and tracking number.
func (r *orderRepository) UpdateStatus(ctx context.Context, order *model.Order) error {
	query := `
		UPDATE orders
		SET status = $2, payment_status = $3, tracking_number = $4, updated_at = $5
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query,
		order.ID, order.Status, order.PaymentStatus, order.TrackingNumber, order.UpdatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to update order status")
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrOrderNotFound
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("status", string(order.Status)).
		Str("payment_status", string(order.PaymentStatus)).
		Msg("order status updated")

	return nil
}
