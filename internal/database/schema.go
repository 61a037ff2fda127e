package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schema holds the persisted state of the order core: orders with their
// line items, the stock movement log, and gateway payment transactions.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS orders (
		id UUID PRIMARY KEY,
		number TEXT NOT NULL UNIQUE,
		customer_name TEXT NOT NULL,
		customer_email TEXT NOT NULL,
		customer_phone TEXT,
		user_id UUID,
		subtotal NUMERIC(12,2) NOT NULL,
		shipping_cost NUMERIC(12,2) NOT NULL,
		discount NUMERIC(12,2) NOT NULL DEFAULT 0,
		total NUMERIC(12,2) NOT NULL,
		status TEXT NOT NULL,
		payment_status TEXT NOT NULL,
		coupon_code TEXT,
		referral_code TEXT,
		tracking_number TEXT,
		postal_code TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS order_items (
		id UUID PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		product_id TEXT NOT NULL,
		name TEXT NOT NULL,
		quantity INTEGER NOT NULL CHECK (quantity > 0),
		unit_price NUMERIC(12,2) NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		id UUID PRIMARY KEY,
		product_id TEXT NOT NULL,
		delta INTEGER NOT NULL,
		kind TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		order_ref TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_stock_movements_product
		ON stock_movements (product_id, created_at)`,
	`CREATE TABLE IF NOT EXISTS payment_transactions (
		code TEXT PRIMARY KEY,
		order_id UUID NOT NULL REFERENCES orders(id),
		method TEXT NOT NULL,
		gateway_status INTEGER NOT NULL,
		payment_link TEXT NOT NULL DEFAULT '',
		qr_code TEXT NOT NULL DEFAULT '',
		emv TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}

// Migrate applies the schema. Statements are idempotent, so the call is
// safe on every startup.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
