package service

import (
	"context"
	"fmt"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// LedgerServiceImpl implements ports.Ledger. Every method works inside the
// caller's transaction and locks the wallet row before touching its balance.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	ledgerRepo ports.LedgerRepository
	log        zerolog.Logger
	now        func() time.Time
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(walletRepo ports.WalletRepository, ledgerRepo ports.LedgerRepository, log zerolog.Logger) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		ledgerRepo: ledgerRepo,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Credit adds amount to the owner's wallet and appends a completed entry.
func (s *LedgerServiceImpl) Credit(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind, policyID *uuid.UUID) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	wallet, err := s.lockWallet(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}

	entry := s.newEntry(wallet.ID, amount, kind, domain.EntryStatusCompleted)
	entry.PolicyID = policyID
	if err := s.apply(ctx, tx, wallet, wallet.Balance.Add(amount), entry); err != nil {
		return nil, err
	}

	s.log.Debug().
		Str("entry_id", entry.ID.String()).
		Str("owner_id", ownerID.String()).
		Str("amount", amount.StringFixed(2)).
		Str("kind", string(kind)).
		Msg("wallet credited")
	return entry, nil
}

// Debit removes amount from the owner's wallet.
func (s *LedgerServiceImpl) Debit(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind) (*domain.LedgerEntry, error) {
	return s.withdraw(ctx, tx, ownerID, amount, kind, domain.EntryStatusCompleted)
}

// HoldForWithdrawal removes amount from the wallet and leaves a pending
// WITHDRAWAL_REQUESTED entry until a manager acts on it.
func (s *LedgerServiceImpl) HoldForWithdrawal(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*domain.LedgerEntry, error) {
	return s.withdraw(ctx, tx, ownerID, amount, domain.EntryKindWithdrawalRequested, domain.EntryStatusPending)
}

func (s *LedgerServiceImpl) withdraw(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind, status domain.EntryStatus) (*domain.LedgerEntry, error) {
	if !amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	wallet, err := s.lockWallet(ctx, tx, ownerID)
	if err != nil {
		return nil, err
	}
	if !wallet.CanCover(amount) {
		return nil, apperror.ErrInsufficientFunds()
	}

	entry := s.newEntry(wallet.ID, amount.Neg(), kind, status)
	if err := s.apply(ctx, tx, wallet, wallet.Balance.Sub(amount), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// MarkProcessing claims a pending withdrawal request for payout.
func (s *LedgerServiceImpl) MarkProcessing(ctx context.Context, tx pgx.Tx, entryID uuid.UUID) (*domain.LedgerEntry, error) {
	entry, err := s.ledgerRepo.GetByIDForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock ledger entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("ledger entry")
	}
	if !entry.IsAwaitingApproval() {
		return nil, apperror.ErrNotPending()
	}

	ok, err := s.ledgerRepo.Transition(ctx, tx, entryID, domain.EntryKindWithdrawalRequested,
		domain.EntryKindWithdrawalProcessing, domain.EntryStatusPending, nil)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("mark processing: %w", err))
	}
	if !ok {
		return nil, apperror.ErrNotPending()
	}

	entry.Kind = domain.EntryKindWithdrawalProcessing
	entry.UpdatedAt = s.now()
	return entry, nil
}

// FinalizeHold closes a processing withdrawal. A rejected hold is credited
// back to the wallet in full; a completed one leaves the balance alone.
func (s *LedgerServiceImpl) FinalizeHold(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, outcome domain.HoldOutcome, externalRef *string) (*domain.LedgerEntry, error) {
	if !outcome.Valid() {
		return nil, apperror.Validation(fmt.Sprintf("unknown hold outcome %q", outcome))
	}
	entry, err := s.ledgerRepo.GetByIDForUpdate(ctx, tx, entryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock ledger entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("ledger entry")
	}
	if !entry.IsProcessing() {
		return nil, apperror.ErrInvalidState(fmt.Sprintf("entry is %s/%s, not processing", entry.Kind, entry.Status))
	}

	kind, status := outcome.Target()
	ok, err := s.ledgerRepo.Transition(ctx, tx, entryID, domain.EntryKindWithdrawalProcessing, kind, status, externalRef)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("finalize hold: %w", err))
	}
	if !ok {
		return nil, apperror.ErrInvalidState("entry was finalized concurrently")
	}

	if outcome == domain.HoldRejected {
		wallet, err := s.walletRepo.GetByIDForUpdate(ctx, tx, entry.WalletID)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
		}
		if wallet == nil {
			return nil, apperror.ErrNotFound("wallet")
		}
		if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, wallet.Balance.Add(entry.HeldAmount())); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("refund hold: %w", err))
		}
	}

	entry.Kind = kind
	entry.Status = status
	if externalRef != nil {
		entry.ExternalReference = externalRef
	}
	entry.UpdatedAt = s.now()

	s.log.Info().
		Str("entry_id", entryID.String()).
		Str("outcome", string(outcome)).
		Str("amount", entry.HeldAmount().StringFixed(2)).
		Msg("withdrawal hold finalized")
	return entry, nil
}

// RecordEntry appends an entry without moving the balance.
func (s *LedgerServiceImpl) RecordEntry(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind, status domain.EntryStatus) (*domain.LedgerEntry, error) {
	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}

	entry := s.newEntry(wallet.ID, amount, kind, status)
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}
	return entry, nil
}

func (s *LedgerServiceImpl) lockWallet(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, ownerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	return wallet, nil
}

// apply writes the new balance and its entry.
func (s *LedgerServiceImpl) apply(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, balance decimal.Decimal, entry *domain.LedgerEntry) error {
	if err := s.walletRepo.UpdateBalance(ctx, tx, wallet.ID, balance); err != nil {
		return apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}
	if err := s.ledgerRepo.Create(ctx, tx, entry); err != nil {
		return apperror.InternalError(fmt.Errorf("create ledger entry: %w", err))
	}
	wallet.Balance = balance
	return nil
}

func (s *LedgerServiceImpl) newEntry(walletID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind, status domain.EntryStatus) *domain.LedgerEntry {
	now := s.now()
	return &domain.LedgerEntry{
		ID:        uuid.New(),
		WalletID:  walletID,
		Amount:    amount,
		Kind:      kind,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
