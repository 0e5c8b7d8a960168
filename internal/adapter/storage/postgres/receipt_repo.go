package postgres

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// ReceiptRepo implements ports.ReceiptRepository. The primary key on
// receipt_id is the durable duplicate guard for payment callbacks.
type ReceiptRepo struct {
	pool Pool
}

// NewReceiptRepo creates a new ReceiptRepo.
func NewReceiptRepo(pool Pool) *ReceiptRepo {
	return &ReceiptRepo{pool: pool}
}

// Create records a receipt inside the settlement transaction.
func (r *ReceiptRepo) Create(ctx context.Context, tx pgx.Tx, rec *domain.PaymentReceipt) error {
	query := `INSERT INTO payment_receipts (receipt_id, policy_id, amount, received_at) VALUES ($1, $2, $3, $4)`

	_, err := tx.Exec(ctx, query, rec.ReceiptID, rec.PolicyID, rec.Amount, rec.ReceivedAt)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ports.ErrReceiptRecorded
		}
		return fmt.Errorf("insert payment receipt: %w", err)
	}
	return nil
}

// Get fetches a receipt by id.
func (r *ReceiptRepo) Get(ctx context.Context, receiptID string) (*domain.PaymentReceipt, error) {
	query := `SELECT receipt_id, policy_id, amount, received_at FROM payment_receipts WHERE receipt_id = $1`

	rec := &domain.PaymentReceipt{}
	err := r.pool.QueryRow(ctx, query, receiptID).Scan(&rec.ReceiptID, &rec.PolicyID, &rec.Amount, &rec.ReceivedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get payment receipt: %w", err)
	}
	return rec, nil
}
