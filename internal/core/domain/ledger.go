package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryKindCommissionEarned     EntryKind = "COMMISSION_EARNED"
	EntryKindWithdrawalRequested  EntryKind = "WITHDRAWAL_REQUESTED"
	EntryKindWithdrawalProcessing EntryKind = "WITHDRAWAL_PROCESSING"
	EntryKindWithdrawalCompleted  EntryKind = "WITHDRAWAL_COMPLETED"
	EntryKindWithdrawalRejected   EntryKind = "WITHDRAWAL_REJECTED"
	EntryKindPayoutDebit          EntryKind = "PAYOUT_DEBIT"
)

// EntryStatus is the lifecycle state of a ledger entry.
type EntryStatus string

const (
	EntryStatusPending   EntryStatus = "PENDING"
	EntryStatusCompleted EntryStatus = "COMPLETED"
	EntryStatusRejected  EntryStatus = "REJECTED"
)

// HoldOutcome is how a withdrawal hold is closed.
type HoldOutcome string

const (
	HoldCompleted HoldOutcome = "COMPLETED"
	HoldRejected  HoldOutcome = "REJECTED"
)

// LedgerEntry is one append-only movement on a wallet. Amount is signed:
// positive for credits, negative for debits and holds.
type LedgerEntry struct {
	ID                uuid.UUID       `json:"id"`
	WalletID          uuid.UUID       `json:"wallet_id"`
	PolicyID          *uuid.UUID      `json:"policy_id,omitempty"`
	Amount            decimal.Decimal `json:"amount"`
	Kind              EntryKind       `json:"kind"`
	Status            EntryStatus     `json:"status"`
	CorrelationID     *string         `json:"correlation_id,omitempty"`
	ExternalReference *string         `json:"external_reference,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// IsTerminal returns true once the entry can no longer change.
func (e *LedgerEntry) IsTerminal() bool {
	return e.Status == EntryStatusCompleted || e.Status == EntryStatusRejected
}

// IsAwaitingApproval is true for a withdrawal request a manager has not acted on.
func (e *LedgerEntry) IsAwaitingApproval() bool {
	return e.Kind == EntryKindWithdrawalRequested && e.Status == EntryStatusPending
}

// IsProcessing is true while the payout is in flight at the gateway.
func (e *LedgerEntry) IsProcessing() bool {
	return e.Kind == EntryKindWithdrawalProcessing && e.Status == EntryStatusPending
}

// HeldAmount is the positive amount removed from the wallet by a hold.
func (e *LedgerEntry) HeldAmount() decimal.Decimal {
	return e.Amount.Abs()
}

// withdrawalTransitions lists the only legal kind changes of a withdrawal.
var withdrawalTransitions = map[EntryKind][]EntryKind{
	EntryKindWithdrawalRequested:  {EntryKindWithdrawalProcessing},
	EntryKindWithdrawalProcessing: {EntryKindWithdrawalCompleted, EntryKindWithdrawalRejected},
}

// CanTransition reports whether a pending withdrawal entry may move to kind.
func (e *LedgerEntry) CanTransition(to EntryKind) bool {
	if e.Status != EntryStatusPending {
		return false
	}
	for _, k := range withdrawalTransitions[e.Kind] {
		if k == to {
			return true
		}
	}
	return false
}

// Target returns the kind and status a hold lands in for the given outcome.
func (o HoldOutcome) Target() (EntryKind, EntryStatus) {
	if o == HoldCompleted {
		return EntryKindWithdrawalCompleted, EntryStatusCompleted
	}
	return EntryKindWithdrawalRejected, EntryStatusRejected
}

// Valid reports whether o is a known outcome.
func (o HoldOutcome) Valid() bool {
	return o == HoldCompleted || o == HoldRejected
}
