package ports

import (
	"context"
	"time"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// SignatureService handles HMAC-SHA256 signing and verification of callbacks.
type SignatureService interface {
	Sign(secretKey string, payload string) string
	Verify(secretKey string, payload string, signature string) bool
	BuildCanonicalString(path string, timestamp int64, body string) string
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(userID uuid.UUID, role domain.Role) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	UserID uuid.UUID
	Role   domain.Role
}

// IdempotencyCache is the Redis-layer idempotency check (fast path).
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // Returns cached response JSON or nil
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// ReceiptCache remembers settled payment receipt ids (fast path in front of ReceiptRepository).
type ReceiptCache interface {
	Seen(ctx context.Context, receiptID string) (bool, error)
	Remember(ctx context.Context, receiptID string, ttl time.Duration) error
}

// --- External collaborators ---

// PaymentGateway submits payouts to the mobile-money gateway.
type PaymentGateway interface {
	SubmitPayout(ctx context.Context, instruction domain.PayoutInstruction) (*domain.PayoutSubmission, error)
}

// CertificateRenderer renders a policy certificate and returns its stored reference.
type CertificateRenderer interface {
	Render(ctx context.Context, req domain.CertificateRequest) (string, error)
}

// DocumentStore stores bytes and returns an opaque reference.
type DocumentStore interface {
	Put(ctx context.Context, name string, content []byte) (string, error)
}

// Notifier records an event for a user. Fire-and-forget.
type Notifier interface {
	Notify(ctx context.Context, n *domain.Notification)
}

// AuditService records audit log entries. Fire-and-forget.
type AuditService interface {
	Log(ctx context.Context, entry *domain.AuditLog)
}

// --- Service Ports (Business Logic) ---

// Ledger is the wallet ledger. Every operation runs inside the caller's
// transaction so it composes with settlement and payout steps.
type Ledger interface {
	Credit(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind, policyID *uuid.UUID) (*domain.LedgerEntry, error)
	Debit(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind) (*domain.LedgerEntry, error)
	HoldForWithdrawal(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal) (*domain.LedgerEntry, error)
	MarkProcessing(ctx context.Context, tx pgx.Tx, entryID uuid.UUID) (*domain.LedgerEntry, error)
	FinalizeHold(ctx context.Context, tx pgx.Tx, entryID uuid.UUID, outcome domain.HoldOutcome, externalRef *string) (*domain.LedgerEntry, error)
	RecordEntry(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, amount decimal.Decimal, kind domain.EntryKind, status domain.EntryStatus) (*domain.LedgerEntry, error)
}

// Inventory manages certificate stock.
type Inventory interface {
	DecrementOne(ctx context.Context, tx pgx.Tx, key domain.StockKey) error
	Replenish(ctx context.Context, key domain.StockKey, quantity int) (*domain.CertificateStock, error)
	ListForManager(ctx context.Context, managerID uuid.UUID) ([]domain.CertificateStock, error)
}

// ReconciliationIndex maps gateway correlation ids to ledger entries.
type ReconciliationIndex interface {
	Associate(ctx context.Context, entryID uuid.UUID, correlationID string) error
	Lookup(ctx context.Context, correlationID string) (*uuid.UUID, error) // nil when unknown
}

// PolicyService handles agent-facing policy operations.
type PolicyService interface {
	CreatePolicy(ctx context.Context, agent domain.Agent, req CreatePolicyRequest) (*domain.Policy, error)
	GetPolicy(ctx context.Context, agent domain.Agent, id uuid.UUID) (*domain.Policy, error)
	ListPolicies(ctx context.Context, agent domain.Agent) ([]domain.Policy, error)
}

// CreatePolicyRequest holds validated input for policy creation.
type CreatePolicyRequest struct {
	ProductID    uuid.UUID
	ClientName   string
	ClientPhone  string
	InsuredValue decimal.Decimal
}

// SettlementOutcome describes how a payment result was applied.
type SettlementOutcome string

const (
	OutcomeSettled       SettlementOutcome = "SETTLED"
	OutcomePaymentFailed SettlementOutcome = "PAYMENT_FAILED"
	OutcomeDuplicate     SettlementOutcome = "DUPLICATE"
)

// SettlementService consumes inbound payment results.
type SettlementService interface {
	HandlePaymentResult(ctx context.Context, result domain.PaymentResult) (SettlementOutcome, error)
	RetryCertificates(ctx context.Context, limit int) (int, error)
}

// WithdrawalRequest holds validated input for an agent withdrawal.
type WithdrawalRequest struct {
	Amount         decimal.Decimal
	IdempotencyKey string // optional
}

// PayoutService handles agent withdrawals and gateway payout results.
type PayoutService interface {
	RequestWithdrawal(ctx context.Context, agent domain.Agent, req WithdrawalRequest) (*domain.LedgerEntry, error)
	ApproveWithdrawal(ctx context.Context, manager domain.Manager, entryID uuid.UUID) (*domain.LedgerEntry, error)
	ListPendingWithdrawals(ctx context.Context, manager domain.Manager) ([]domain.LedgerEntry, error)
	HandlePayoutResult(ctx context.Context, result domain.PayoutResult) error
	HandlePayoutTimeout(ctx context.Context, payload map[string]any)
	SweepStalePayouts(ctx context.Context, now time.Time) (int, error)
}

// WalletService serves wallet balance and history reads.
type WalletService interface {
	GetWallet(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	ListEntries(ctx context.Context, ownerID uuid.UUID, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	GetStats(ctx context.Context, ownerID uuid.UUID) (*LedgerStats, error)
}

// NotificationService records and lists notifications.
type NotificationService interface {
	Notifier
	List(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error)
}
