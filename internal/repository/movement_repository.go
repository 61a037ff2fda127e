package repository

import (
	"context"
	"fmt"

	"lojinha/internal/model"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// movementRepository implements MovementRepository using PostgreSQL. Rows
// are insert-only: the movement log is the reconciliation source of truth
// and is never updated or deleted.
type movementRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewMovementRepository creates a new PostgreSQL-backed movement repository.
func NewMovementRepository(pool *pgxpool.Pool, logger zerolog.Logger) MovementRepository {
	return &movementRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "movement").Logger(),
	}
}

// Append inserts one movement-log entry.
func (r *movementRepository) Append(ctx context.Context, m model.StockMovement) error {
	query := `
		INSERT INTO stock_movements (id, product_id, delta, kind, reason, order_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, m.ID, m.ProductID, m.Delta, m.Kind, m.Reason, m.OrderRef, m.CreatedAt)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("product_id", m.ProductID).
			Str("kind", string(m.Kind)).
			Msg("failed to append stock movement")
		return fmt.Errorf("failed to append stock movement: %w", err)
	}
	return nil
}

// ListByProduct returns a product's movements, oldest first.
func (r *movementRepository) ListByProduct(ctx context.Context, productID string) ([]model.StockMovement, error) {
	query := `
		SELECT id, product_id, delta, kind, reason, order_ref, created_at
		FROM stock_movements
		WHERE product_id = $1
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list stock movements: %w", err)
	}
	defer rows.Close()

	var out []model.StockMovement
	for rows.Next() {
		var m model.StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.Kind, &m.Reason, &m.OrderRef, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stock movements: %w", err)
	}
	return out, nil
}

// QuantityTotals sums the movement log per product. Used to rebuild the
// in-memory ledger after a restart.
func (r *movementRepository) QuantityTotals(ctx context.Context) (map[string]int, error) {
	query := `
		SELECT product_id, COALESCE(SUM(delta), 0)
		FROM stock_movements
		GROUP BY product_id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to sum stock movements: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var productID string
		var total int
		if err := rows.Scan(&productID, &total); err != nil {
			return nil, fmt.Errorf("failed to scan movement total: %w", err)
		}
		totals[productID] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read movement totals: %w", err)
	}
	return totals, nil
}
