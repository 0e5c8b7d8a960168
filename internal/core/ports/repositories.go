package ports

import (
	"context"
	"errors"
	"time"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// Repository-level conditions the services translate into API errors.
var (
	ErrStockNotConfigured = errors.New("certificate stock not configured")
	ErrStockEmpty         = errors.New("certificate stock empty")
	ErrCorrelationTaken   = errors.New("correlation id already bound")
	ErrReceiptRecorded    = errors.New("payment receipt already recorded")
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx are used inside transaction blocks for pessimistic locking.
type WalletRepository interface {
	Create(ctx context.Context, wallet *domain.Wallet) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Wallet, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID) (*domain.Wallet, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Wallet, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, walletID uuid.UUID, balance decimal.Decimal) error
}

// LedgerRepository defines persistence operations for ledger entries.
type LedgerRepository interface {
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error)
	// Transition moves a PENDING entry of kind from to kind to with the given
	// status. It reports false when the entry was no longer PENDING in from.
	Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.EntryKind, status domain.EntryStatus, externalRef *string) (bool, error)
	// SetCorrelationID binds a gateway correlation id. ErrCorrelationTaken when
	// the id belongs to another entry or the entry already carries another id.
	SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error
	GetByCorrelationID(ctx context.Context, correlationID string) (*domain.LedgerEntry, error)
	List(ctx context.Context, params LedgerListParams) ([]domain.LedgerEntry, int64, error)
	ListPendingWithdrawals(ctx context.Context, managerID uuid.UUID) ([]domain.LedgerEntry, error)
	ListStaleProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.LedgerEntry, error)
	GetStats(ctx context.Context, walletID uuid.UUID) (*LedgerStats, error)
}

// LedgerListParams holds filter + pagination for listing ledger entries.
type LedgerListParams struct {
	WalletID uuid.UUID
	Kind     *domain.EntryKind
	Status   *domain.EntryStatus
	From     *int64 // Unix timestamp
	To       *int64 // Unix timestamp
	Page     int
	PageSize int
}

// LedgerStats holds aggregated wallet figures for dashboards.
type LedgerStats struct {
	EntryCount       int64
	CommissionEarned decimal.Decimal
	Withdrawn        decimal.Decimal // completed withdrawals
	PendingHolds     decimal.Decimal // requested + processing
}

// StockRepository defines persistence for certificate stock.
type StockRepository interface {
	// DecrementOne removes one unit with a single conditional update and
	// returns the remaining quantity. ErrStockNotConfigured or ErrStockEmpty otherwise.
	DecrementOne(ctx context.Context, tx pgx.Tx, key domain.StockKey) (int, error)
	Replenish(ctx context.Context, key domain.StockKey, quantity int) (*domain.CertificateStock, error)
	Get(ctx context.Context, key domain.StockKey) (*domain.CertificateStock, error)
	ListByManager(ctx context.Context, managerID uuid.UUID) ([]domain.CertificateStock, error)
}

// PaidStamp is written when a policy is settled.
type PaidStamp struct {
	PaidAt     time.Time
	StartDate  time.Time
	ExpiryDate time.Time
	Receipt    *string
}

// PolicyRepository defines persistence for policies. MarkPaid and MarkFailed
// are compare-and-set from PENDING_PAYMENT and report whether they applied.
type PolicyRepository interface {
	Create(ctx context.Context, policy *domain.Policy) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Policy, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.Policy, error)
	MarkPaid(ctx context.Context, tx pgx.Tx, id uuid.UUID, stamp PaidStamp) (bool, error)
	MarkFailed(ctx context.Context, tx pgx.Tx, id uuid.UUID, reason string) (bool, error)
	AttachCertificate(ctx context.Context, id uuid.UUID, ref string) (bool, error)
	ListByAgent(ctx context.Context, agentID uuid.UUID, limit int) ([]domain.Policy, error)
	ListAwaitingCertificate(ctx context.Context, limit int) ([]domain.Policy, error)
}

// ProductRepository defines persistence for products.
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}

// ClientRepository defines persistence for insured clients.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error)
}

// PartyRepository resolves agents and managers by id.
type PartyRepository interface {
	CreateManager(ctx context.Context, manager *domain.Manager) error
	CreateAgent(ctx context.Context, agent *domain.Agent) error
	GetManager(ctx context.Context, id uuid.UUID) (*domain.Manager, error)
	GetAgent(ctx context.Context, id uuid.UUID) (*domain.Agent, error)
}

// ReceiptRepository records settled payment receipts (durable duplicate guard).
type ReceiptRepository interface {
	// Create returns ErrReceiptRecorded if the receipt id already exists.
	Create(ctx context.Context, tx pgx.Tx, receipt *domain.PaymentReceipt) error
	Get(ctx context.Context, receiptID string) (*domain.PaymentReceipt, error)
}

// IdempotencyRepository defines persistence for idempotency logs (DB backup).
type IdempotencyRepository interface {
	Create(ctx context.Context, tx pgx.Tx, log *domain.IdempotencyLog) error
	Get(ctx context.Context, key string) (*domain.IdempotencyLog, error)
}

// NotificationRepository persists user notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *domain.Notification) error
	ListByRecipient(ctx context.Context, recipientID uuid.UUID, limit int) ([]domain.Notification, error)
}

// AuditRepository persists audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
