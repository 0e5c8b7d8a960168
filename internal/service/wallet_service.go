package service

import (
	"context"
	"fmt"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// walletService implements ports.WalletService.
type walletService struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
}

// NewWalletService creates a new wallet query service.
func NewWalletService(walletRepo ports.WalletRepository, ledgerRepo ports.LedgerRepository) ports.WalletService {
	return &walletService{walletRepo: walletRepo, ledgerRepo: ledgerRepo}
}

// GetWallet returns the owner's wallet and current balance.
func (s *walletService) GetWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// ListEntries returns a page of the owner's ledger history, newest first.
func (s *walletService) ListEntries(ctx context.Context, ownerID uuid.UUID, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	wallet, err := s.GetWallet(ctx, ownerID)
	if err != nil {
		return nil, 0, err
	}
	if params.From != nil && params.To != nil && *params.From > *params.To {
		return nil, 0, apperror.Validation("from must not be after to")
	}
	params.WalletID = wallet.ID
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	entries, total, err := s.ledgerRepo.List(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list ledger entries: %w", err))
	}
	return entries, total, nil
}

// GetStats returns commission earned, withdrawn and held amounts.
func (s *walletService) GetStats(ctx context.Context, ownerID uuid.UUID) (*ports.LedgerStats, error) {
	wallet, err := s.GetWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	stats, err := s.ledgerRepo.GetStats(ctx, wallet.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("ledger stats: %w", err))
	}
	return stats, nil
}
