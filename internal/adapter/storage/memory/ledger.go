package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// LedgerRepo implements ports.LedgerRepository.
type LedgerRepo struct{ s *Store }

func (s *Store) Ledger() *LedgerRepo { return &LedgerRepo{s: s} }

func (r *LedgerRepo) Create(_ context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	mt, err := r.s.open(tx)
	if err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.entries[e.ID]; ok {
		return fmt.Errorf("insert ledger entry: duplicate id %s", e.ID)
	}
	if _, ok := r.s.wallets[e.WalletID]; !ok {
		return fmt.Errorf("insert ledger entry: unknown wallet %s", e.WalletID)
	}
	if e.CorrelationID != nil {
		if _, taken := r.s.byCorrelation[*e.CorrelationID]; taken {
			return ports.ErrCorrelationTaken
		}
		r.s.byCorrelation[*e.CorrelationID] = e.ID
	}
	cp := *e
	r.s.entries[e.ID] = &cp
	r.s.entryOrder = append(r.s.entryOrder, e.ID)

	mt.onRollback(func() {
		delete(r.s.entries, e.ID)
		if cp.CorrelationID != nil {
			delete(r.s.byCorrelation, *cp.CorrelationID)
		}
		for i := len(r.s.entryOrder) - 1; i >= 0; i-- {
			if r.s.entryOrder[i] == e.ID {
				r.s.entryOrder = append(r.s.entryOrder[:i], r.s.entryOrder[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *LedgerRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.entryCopy(id), nil
}

func (r *LedgerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error) {
	if _, err := r.s.open(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *LedgerRepo) Transition(_ context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.EntryKind, status domain.EntryStatus, externalRef *string) (bool, error) {
	mt, err := r.s.open(tx)
	if err != nil {
		return false, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok || e.Kind != from || e.Status != domain.EntryStatusPending {
		return false, nil
	}
	prevKind, prevStatus, prevRef, prevUpdated := e.Kind, e.Status, e.ExternalReference, e.UpdatedAt
	mt.onRollback(func() {
		e.Kind, e.Status, e.ExternalReference, e.UpdatedAt = prevKind, prevStatus, prevRef, prevUpdated
	})
	e.Kind, e.Status = to, status
	if externalRef != nil {
		ref := *externalRef
		e.ExternalReference = &ref
	}
	e.UpdatedAt = r.s.now()
	return true, nil
}

func (r *LedgerRepo) SetCorrelationID(_ context.Context, id uuid.UUID, correlationID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	e, ok := r.s.entries[id]
	if !ok {
		return fmt.Errorf("ledger entry not found: %s", id)
	}
	if owner, taken := r.s.byCorrelation[correlationID]; taken {
		if owner == id {
			return nil
		}
		return ports.ErrCorrelationTaken
	}
	if e.CorrelationID != nil {
		return ports.ErrCorrelationTaken
	}
	corr := correlationID
	e.CorrelationID = &corr
	e.UpdatedAt = r.s.now()
	r.s.byCorrelation[correlationID] = id
	return nil
}

func (r *LedgerRepo) GetByCorrelationID(_ context.Context, correlationID string) (*domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.byCorrelation[correlationID]
	if !ok {
		return nil, nil
	}
	return r.s.entryCopy(id), nil
}

// List returns newest first, like the SQL repository.
func (r *LedgerRepo) List(_ context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var matched []domain.LedgerEntry
	for i := len(r.s.entryOrder) - 1; i >= 0; i-- {
		e := r.s.entries[r.s.entryOrder[i]]
		if e.WalletID != params.WalletID {
			continue
		}
		if params.Kind != nil && e.Kind != *params.Kind {
			continue
		}
		if params.Status != nil && e.Status != *params.Status {
			continue
		}
		if params.From != nil && e.CreatedAt.Unix() < *params.From {
			continue
		}
		if params.To != nil && e.CreatedAt.Unix() > *params.To {
			continue
		}
		matched = append(matched, *e)
	}
	total := int64(len(matched))

	start := (params.Page - 1) * params.PageSize
	if start < 0 || start >= len(matched) {
		return []domain.LedgerEntry{}, total, nil
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}

func (r *LedgerRepo) ListPendingWithdrawals(_ context.Context, managerID uuid.UUID) ([]domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, id := range r.s.entryOrder {
		e := r.s.entries[id]
		if !e.IsAwaitingApproval() {
			continue
		}
		w, ok := r.s.wallets[e.WalletID]
		if !ok {
			continue
		}
		if a, ok := r.s.agents[w.OwnerID]; ok && a.ManagerID == managerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *LedgerRepo) ListStaleProcessing(_ context.Context, updatedBefore time.Time, limit int) ([]domain.LedgerEntry, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []domain.LedgerEntry
	for _, e := range r.s.entries {
		if e.IsProcessing() && e.UpdatedAt.Before(updatedBefore) {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *LedgerRepo) GetStats(_ context.Context, walletID uuid.UUID) (*ports.LedgerStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats := &ports.LedgerStats{
		CommissionEarned: decimal.Zero,
		Withdrawn:        decimal.Zero,
		PendingHolds:     decimal.Zero,
	}
	for _, e := range r.s.entries {
		if e.WalletID != walletID {
			continue
		}
		stats.EntryCount++
		switch {
		case e.Kind == domain.EntryKindCommissionEarned:
			stats.CommissionEarned = stats.CommissionEarned.Add(e.Amount)
		case e.Kind == domain.EntryKindWithdrawalCompleted:
			stats.Withdrawn = stats.Withdrawn.Add(e.HeldAmount())
		case e.IsAwaitingApproval() || e.IsProcessing():
			stats.PendingHolds = stats.PendingHolds.Add(e.HeldAmount())
		}
	}
	return stats, nil
}

func (s *Store) entryCopy(id uuid.UUID) *domain.LedgerEntry {
	e, ok := s.entries[id]
	if !ok {
		return nil
	}
	cp := *e
	return &cp
}
