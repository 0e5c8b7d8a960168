package postgres

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const policyColumns = `id, client_id, product_id, agent_id, insured_value, premium, tax, total, status,
	paid_at, start_date, expiry_date, payment_receipt, failure_reason, certificate_ref, created_at, updated_at`

// PolicyRepo implements ports.PolicyRepository.
type PolicyRepo struct {
	pool Pool
}

// NewPolicyRepo creates a new PolicyRepo.
func NewPolicyRepo(pool Pool) *PolicyRepo {
	return &PolicyRepo{pool: pool}
}

// Create inserts a new policy.
func (r *PolicyRepo) Create(ctx context.Context, p *domain.Policy) error {
	query := `INSERT INTO policies (` + policyColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.ClientID, p.ProductID, p.AgentID, p.InsuredValue, p.Premium, p.Tax, p.Total, p.Status,
		p.PaidAt, p.StartDate, p.ExpiryDate, p.PaymentReceipt, p.FailureReason, p.CertificateRef,
		p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert policy: %w", err)
	}
	return nil
}

// GetByID fetches a policy (non-locking read).
func (r *PolicyRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1`
	return scanPolicy(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate locks a policy row. Must run inside tx.
func (r *PolicyRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE id = $1 FOR UPDATE`
	return scanPolicy(tx.QueryRow(ctx, query, id))
}

// MarkPaid moves PENDING_PAYMENT to PAID and stamps the validity window.
func (r *PolicyRepo) MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, stamp ports.PaidStamp) (bool, error) {
	query := `UPDATE policies
		SET status = 'PAID', paid_at = $1, start_date = $2, expiry_date = $3, payment_receipt = $4, updated_at = NOW()
		WHERE id = $5 AND status = 'PENDING_PAYMENT'`

	tag, err := tx.Exec(ctx, query, stamp.PaidAt, stamp.StartDate, stamp.ExpiryDate, stamp.Receipt, id)
	if err != nil {
		return false, fmt.Errorf("mark policy paid: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkFailed moves PENDING_PAYMENT to FAILED.
func (r *PolicyRepo) MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (bool, error) {
	query := `UPDATE policies SET status = 'FAILED', failure_reason = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'PENDING_PAYMENT'`

	tag, err := tx.Exec(ctx, query, reason, id)
	if err != nil {
		return false, fmt.Errorf("mark policy failed: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// AttachCertificate records the stored certificate once.
func (r *PolicyRepo) AttachCertificate(ctx context.Context, id uuid.UUID, ref string) (bool, error) {
	query := `UPDATE policies SET certificate_ref = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'PAID' AND certificate_ref IS NULL`

	tag, err := r.pool.Exec(ctx, query, ref, id)
	if err != nil {
		return false, fmt.Errorf("attach certificate: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListByAgent returns the agent's most recent policies.
func (r *PolicyRepo) ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies WHERE agent_id = $1 ORDER BY created_at DESC LIMIT $2`
	return r.queryPolicies(ctx, query, agentID, limit)
}

// ListAwaitingCertificate returns paid policies whose certificate was never stored, oldest first.
func (r *PolicyRepo) ListAwaitingCertificate(ctx context.Context, limit int) ([]domain.Policy, error) {
	query := `SELECT ` + policyColumns + ` FROM policies
		WHERE status = 'PAID' AND certificate_ref IS NULL ORDER BY paid_at LIMIT $1`
	return r.queryPolicies(ctx, query, limit)
}

func (r *PolicyRepo) queryPolicies(ctx context.Context, query string, args ...any) ([]domain.Policy, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list policies: %w", err)
	}
	defer rows.Close()

	var out []domain.Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate policy rows: %w", err)
	}
	return out, nil
}

func scanPolicy(row pgx.Row) (*domain.Policy, error) {
	p := &domain.Policy{}
	err := row.Scan(
		&p.ID, &p.ClientID, &p.ProductID, &p.AgentID, &p.InsuredValue, &p.Premium, &p.Tax, &p.Total, &p.Status,
		&p.PaidAt, &p.StartDate, &p.ExpiryDate, &p.PaymentReceipt, &p.FailureReason, &p.CertificateRef,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	return p, nil
}
