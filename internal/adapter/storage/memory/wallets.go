package memory

import (
	"context"
	"fmt"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct{ s *Store }

func (s *Store) Wallets() *WalletRepo { return &WalletRepo{s: s} }

func (r *WalletRepo) Create(_ context.Context, w *domain.Wallet) error {
	if w.Balance.IsNegative() {
		return fmt.Errorf("insert wallet: negative balance")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.walletByOwner[w.OwnerID]; ok {
		return fmt.Errorf("insert wallet: owner %s already has a wallet", w.OwnerID)
	}
	cp := *w
	r.s.wallets[w.ID] = &cp
	r.s.walletByOwner[w.OwnerID] = w.ID
	return nil
}

func (r *WalletRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.s.walletCopy(id), nil
}

func (r *WalletRepo) GetByOwner(_ context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	id, ok := r.s.walletByOwner[ownerID]
	if !ok {
		return nil, nil
	}
	return r.s.walletCopy(id), nil
}

func (r *WalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error) {
	if _, err := r.s.open(tx); err != nil {
		return nil, err
	}
	return r.GetByOwner(ctx, ownerID)
}

func (r *WalletRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error) {
	if _, err := r.s.open(tx); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// UpdateBalance enforces the same non-negative rule as the SQL CHECK.
func (r *WalletRepo) UpdateBalance(_ context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error {
	mt, err := r.s.open(tx)
	if err != nil {
		return err
	}
	if balance.IsNegative() {
		return fmt.Errorf("update wallet balance: balance would be negative")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	w, ok := r.s.wallets[walletID]
	if !ok {
		return fmt.Errorf("wallet not found: %s", walletID)
	}
	prevBalance, prevUpdated := w.Balance, w.UpdatedAt
	mt.onRollback(func() { w.Balance, w.UpdatedAt = prevBalance, prevUpdated })
	w.Balance = balance
	w.UpdatedAt = r.s.now()
	return nil
}

func (s *Store) walletCopy(id uuid.UUID) *domain.Wallet {
	w, ok := s.wallets[id]
	if !ok {
		return nil
	}
	cp := *w
	return &cp
}
