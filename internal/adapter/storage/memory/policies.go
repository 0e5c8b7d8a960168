package memory

import (
	"context"
	"fmt"
	"sort"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PolicyRepo implements ports.PolicyRepository.
type PolicyRepo struct{ s *Store }

func (s *Store) Policies() *PolicyRepo { return &PolicyRepo{s: s} }

func (r *PolicyRepo) Create(_ context.Context, p *domain.Policy) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.policies[p.ID]; ok {
		return fmt.Errorf("insert policy: duplicate id %s", p.ID)
	}
	cp := *p
	r.s.policies[p.ID] = &cp
	return nil
}

func (r *PolicyRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Policy, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.policies[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *PolicyRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Policy, error) {
	if _, err := r.s.open(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *PolicyRepo) MarkPaid(_ context.Context, tx pgx.Tx, id uuid.UUID, stamp ports.PaidStamp) (bool, error) {
	mt, err := r.s.open(tx)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.policies[id]
	if !ok || !p.AwaitingPayment() {
		return false, nil
	}
	prev := *p
	mt.onRollback(func() { *p = prev })

	paidAt, start, expiry := stamp.PaidAt, stamp.StartDate, stamp.ExpiryDate
	p.Status = domain.PolicyStatusPaid
	p.PaidAt, p.StartDate, p.ExpiryDate = &paidAt, &start, &expiry
	p.PaymentReceipt = stamp.Receipt
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *PolicyRepo) MarkFailed(_ context.Context, tx pgx.Tx, id uuid.UUID, reason string) (bool, error) {
	mt, err := r.s.open(tx)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.policies[id]
	if !ok || !p.AwaitingPayment() {
		return false, nil
	}
	prev := *p
	mt.onRollback(func() { *p = prev })

	p.Status = domain.PolicyStatusFailed
	p.FailureReason = &reason
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *PolicyRepo) AttachCertificate(_ context.Context, id uuid.UUID, ref string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.policies[id]
	if !ok || !p.NeedsCertificate() {
		return false, nil
	}
	p.CertificateRef = &ref
	p.UpdatedAt = r.s.now()
	return true, nil
}

func (r *PolicyRepo) ListByAgent(_ context.Context, agentID uuid.UUID, limit int) ([]domain.Policy, error) {
	return r.list(func(p *domain.Policy) bool { return p.AgentID == agentID }, func(a, b domain.Policy) bool {
		return a.CreatedAt.After(b.CreatedAt)
	}, limit), nil
}

func (r *PolicyRepo) ListAwaitingCertificate(_ context.Context, limit int) ([]domain.Policy, error) {
	return r.list(func(p *domain.Policy) bool { return p.NeedsCertificate() }, func(a, b domain.Policy) bool {
		return a.PaidAt.Before(*b.PaidAt)
	}, limit), nil
}

func (r *PolicyRepo) list(keep func(*domain.Policy) bool, less func(a, b domain.Policy) bool, limit int) []domain.Policy {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.Policy
	for _, p := range r.s.policies {
		if keep(p) {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
