package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lojinha/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// paymentRepository implements PaymentRepository using PostgreSQL.
type paymentRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPaymentRepository creates a new PostgreSQL-backed payment repository.
func NewPaymentRepository(pool *pgxpool.Pool, logger zerolog.Logger) PaymentRepository {
	return &paymentRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "payment").Logger(),
	}
}

// Create inserts a new payment transaction.
func (r *paymentRepository) Create(ctx context.Context, txn *model.PaymentTransaction) error {
	query := `
		INSERT INTO payment_transactions (
			code, order_id, method, gateway_status, payment_link, qr_code, emv,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.pool.Exec(ctx, query,
		txn.Code, txn.OrderID, txn.Method, txn.GatewayStatus,
		txn.PaymentLink, txn.QRCode, txn.EMV,
		txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("transaction_code", txn.Code).
			Str("order_id", txn.OrderID.String()).
			Msg("failed to create payment transaction")
		return fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return nil
}

// UpdateStatus stores the gateway's latest status code for a transaction.
func (r *paymentRepository) UpdateStatus(ctx context.Context, code string, gatewayStatus int) error {
	query := `
		UPDATE payment_transactions
		SET gateway_status = $2, updated_at = $3
		WHERE code = $1
	`

	_, err := r.pool.Exec(ctx, query, code, gatewayStatus, time.Now())
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("transaction_code", code).
			Msg("failed to update payment transaction")
		return fmt.Errorf("failed to update payment transaction: %w", err)
	}
	return nil
}

// GetByCode retrieves a transaction by its gateway code, or nil.
func (r *paymentRepository) GetByCode(ctx context.Context, code string) (*model.PaymentTransaction, error) {
	query := `
		SELECT code, order_id, method, gateway_status, payment_link, qr_code, emv,
		       created_at, updated_at
		FROM payment_transactions
		WHERE code = $1
	`

	var txn model.PaymentTransaction
	err := r.pool.QueryRow(ctx, query, code).Scan(
		&txn.Code, &txn.OrderID, &txn.Method, &txn.GatewayStatus,
		&txn.PaymentLink, &txn.QRCode, &txn.EMV,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment transaction: %w", err)
	}
	return &txn, nil
}
