package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const ledgerColumns = `id, wallet_id, policy_id, amount, kind, status, correlation_id, external_reference, created_at, updated_at`

// LedgerRepo implements ports.LedgerRepository on the ledger_entries table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Create appends an entry within a database transaction.
func (r *LedgerRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	query := `INSERT INTO ledger_entries (` + ledgerColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		e.ID, e.WalletID, e.PolicyID, e.Amount, e.Kind, e.Status,
		e.CorrelationID, e.ExternalReference, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByID fetches an entry by UUID.
func (r *LedgerRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1`
	return scanLedgerEntry(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate locks an entry row. Must run inside tx.
func (r *LedgerRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE id = $1 FOR UPDATE`
	return scanLedgerEntry(tx.QueryRow(ctx, query, id))
}

// Transition is a compare-and-set on (kind, PENDING).
func (r *LedgerRepo) Transition(ctx context.Context, tx pgx.Tx, id uuid.UUID, from, to domain.EntryKind, status domain.EntryStatus, externalRef *string) (bool, error) {
	query := `UPDATE ledger_entries
		SET kind = $1, status = $2, external_reference = COALESCE($3, external_reference), updated_at = NOW()
		WHERE id = $4 AND kind = $5 AND status = 'PENDING'`

	tag, err := tx.Exec(ctx, query, to, status, externalRef, id, from)
	if err != nil {
		return false, fmt.Errorf("transition ledger entry: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// SetCorrelationID binds a gateway correlation id to an entry. Re-binding the
// same pair is a no-op.
func (r *LedgerRepo) SetCorrelationID(ctx context.Context, id uuid.UUID, correlationID string) error {
	query := `UPDATE ledger_entries SET correlation_id = $1, updated_at = NOW()
		WHERE id = $2 AND (correlation_id IS NULL OR correlation_id = $1)`

	tag, err := r.pool.Exec(ctx, query, correlationID, id)
	if err != nil {
		if isUniqueViolation(err, "") {
			return ports.ErrCorrelationTaken
		}
		return fmt.Errorf("set correlation id: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check ledger entry exists: %w", err)
	}
	if !exists {
		return fmt.Errorf("ledger entry not found: %s", id)
	}
	return ports.ErrCorrelationTaken
}

// GetByCorrelationID resolves a gateway correlation id.
func (r *LedgerRepo) GetByCorrelationID(ctx context.Context, correlationID string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE correlation_id = $1`
	return scanLedgerEntry(r.pool.QueryRow(ctx, query, correlationID))
}

// List fetches a wallet's entries with filtering and pagination.
func (r *LedgerRepo) List(ctx context.Context, params ports.LedgerListParams) ([]domain.LedgerEntry, int64, error) {
	var conditions []string
	var args []any
	argIdx := 1

	conditions = append(conditions, fmt.Sprintf("wallet_id = $%d", argIdx))
	args = append(args, params.WalletID)
	argIdx++

	if params.Kind != nil {
		conditions = append(conditions, fmt.Sprintf("kind = $%d", argIdx))
		args = append(args, *params.Kind)
		argIdx++
	}
	if params.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}
	if params.From != nil {
		conditions = append(conditions, fmt.Sprintf("created_at >= to_timestamp($%d)", argIdx))
		args = append(args, *params.From)
		argIdx++
	}
	if params.To != nil {
		conditions = append(conditions, fmt.Sprintf("created_at <= to_timestamp($%d)", argIdx))
		args = append(args, *params.To)
		argIdx++
	}

	where := "WHERE " + strings.Join(conditions, " AND ")

	var total int64
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ledger_entries "+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("count ledger entries: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	dataQuery := fmt.Sprintf(`SELECT %s FROM ledger_entries %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		ledgerColumns, where, argIdx, argIdx+1)
	args = append(args, params.PageSize, offset)

	entries, err := r.queryEntries(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// ListPendingWithdrawals returns requests awaiting approval from agents the manager administers.
func (r *LedgerRepo) ListPendingWithdrawals(ctx context.Context, managerID uuid.UUID) ([]domain.LedgerEntry, error) {
	query := `SELECT e.id, e.wallet_id, e.policy_id, e.amount, e.kind, e.status, e.correlation_id,
		e.external_reference, e.created_at, e.updated_at
		FROM ledger_entries e
		JOIN wallets w ON w.id = e.wallet_id
		JOIN agents a ON a.id = w.owner_id
		WHERE a.manager_id = $1 AND e.kind = 'WITHDRAWAL_REQUESTED' AND e.status = 'PENDING'
		ORDER BY e.created_at`
	return r.queryEntries(ctx, query, managerID)
}

// ListStaleProcessing returns in-flight payouts untouched since updatedBefore.
func (r *LedgerRepo) ListStaleProcessing(ctx context.Context, updatedBefore time.Time, limit int) ([]domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries
		WHERE kind = 'WITHDRAWAL_PROCESSING' AND status = 'PENDING' AND updated_at < $1
		ORDER BY updated_at LIMIT $2`
	return r.queryEntries(ctx, query, updatedBefore, limit)
}

// GetStats aggregates a wallet's entries.
func (r *LedgerRepo) GetStats(ctx context.Context, walletID uuid.UUID) (*ports.LedgerStats, error) {
	query := `SELECT
		COUNT(*) AS entries,
		COALESCE(SUM(amount) FILTER (WHERE kind = 'COMMISSION_EARNED'), 0) AS earned,
		COALESCE(-SUM(amount) FILTER (WHERE kind = 'WITHDRAWAL_COMPLETED'), 0) AS withdrawn,
		COALESCE(-SUM(amount) FILTER (WHERE kind IN ('WITHDRAWAL_REQUESTED', 'WITHDRAWAL_PROCESSING') AND status = 'PENDING'), 0) AS held
		FROM ledger_entries WHERE wallet_id = $1`

	stats := &ports.LedgerStats{}
	err := r.pool.QueryRow(ctx, query, walletID).Scan(
		&stats.EntryCount, &stats.CommissionEarned, &stats.Withdrawn, &stats.PendingHolds,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger stats: %w", err)
	}
	return stats, nil
}

func (r *LedgerRepo) queryEntries(ctx context.Context, query string, args ...any) ([]domain.LedgerEntry, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e := domain.LedgerEntry{}
		if err := rows.Scan(
			&e.ID, &e.WalletID, &e.PolicyID, &e.Amount, &e.Kind, &e.Status,
			&e.CorrelationID, &e.ExternalReference, &e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ledger row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger rows: %w", err)
	}
	return entries, nil
}

func scanLedgerEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	err := row.Scan(
		&e.ID, &e.WalletID, &e.PolicyID, &e.Amount, &e.Kind, &e.Status,
		&e.CorrelationID, &e.ExternalReference, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	return e, nil
}
