// Package memory is a process-local storage driver implementing the
// repository ports. Transactions are serialized by a single lock, which
// stands in for PostgreSQL row locks, and roll back through an undo log.
package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var errForeignTx = errors.New("memory: transaction was not started by this store")

// Store holds every table. Zero value is not usable; call New.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex

	managers      map[uuid.UUID]domain.Manager
	agents        map[uuid.UUID]domain.Agent
	wallets       map[uuid.UUID]*domain.Wallet
	walletByOwner map[uuid.UUID]uuid.UUID
	entries       map[uuid.UUID]*domain.LedgerEntry
	entryOrder    []uuid.UUID
	byCorrelation map[string]uuid.UUID
	products      map[uuid.UUID]domain.Product
	clients       map[uuid.UUID]domain.Client
	policies      map[uuid.UUID]*domain.Policy
	stock         map[domain.StockKey]*domain.CertificateStock
	receipts      map[string]domain.PaymentReceipt
	idempotency   map[string]domain.IdempotencyLog
	notifications []domain.Notification
	audit         []domain.AuditLog

	now func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		managers:      make(map[uuid.UUID]domain.Manager),
		agents:        make(map[uuid.UUID]domain.Agent),
		wallets:       make(map[uuid.UUID]*domain.Wallet),
		walletByOwner: make(map[uuid.UUID]uuid.UUID),
		entries:       make(map[uuid.UUID]*domain.LedgerEntry),
		byCorrelation: make(map[string]uuid.UUID),
		products:      make(map[uuid.UUID]domain.Product),
		clients:       make(map[uuid.UUID]domain.Client),
		policies:      make(map[uuid.UUID]*domain.Policy),
		stock:         make(map[domain.StockKey]*domain.CertificateStock),
		receipts:      make(map[string]domain.PaymentReceipt),
		idempotency:   make(map[string]domain.IdempotencyLog),
		now:           time.Now,
	}
}

// Begin implements ports.DBTransactor. It blocks until no other
// transaction is open.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.txMu.Lock()
	return &Tx{store: s}, nil
}

// Tx is a memory transaction. Only Commit and Rollback are supported; the
// embedded pgx.Tx is nil and any other method panics.
type Tx struct {
	pgx.Tx
	store *Store
	undo  []func()
	done  bool
}

// Commit keeps every change made through the transaction.
func (t *Tx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.store.txMu.Unlock()
	return nil
}

// Rollback reverts the transaction's changes. After Commit it returns ErrTxClosed.
func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.store.mu.Lock()
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.store.mu.Unlock()
	t.undo = nil
	t.store.txMu.Unlock()
	return nil
}

// open resolves tx to a live transaction of this store.
func (s *Store) open(tx pgx.Tx) (*Tx, error) {
	mt, ok := tx.(*Tx)
	if !ok || mt.store != s {
		return nil, errForeignTx
	}
	if mt.done {
		return nil, pgx.ErrTxClosed
	}
	return mt, nil
}

// onRollback registers f; callers hold s.mu.
func (t *Tx) onRollback(f func()) {
	t.undo = append(t.undo, f)
}

// Ping lets the store act as a ports.HealthChecker.
func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Name() string { return "memory" }
