package postgres

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// PartyRepo implements ports.PartyRepository over the managers and agents tables.
type PartyRepo struct {
	pool Pool
}

// NewPartyRepo creates a new PartyRepo.
func NewPartyRepo(pool Pool) *PartyRepo {
	return &PartyRepo{pool: pool}
}

func (r *PartyRepo) CreateManager(ctx context.Context, m *domain.Manager) error {
	query := `INSERT INTO managers (id, full_name, phone, created_at) VALUES ($1, $2, $3, $4)`

	if _, err := r.pool.Exec(ctx, query, m.ID, m.FullName, m.Phone, m.CreatedAt); err != nil {
		return fmt.Errorf("insert manager: %w", err)
	}
	return nil
}

func (r *PartyRepo) CreateAgent(ctx context.Context, a *domain.Agent) error {
	query := `INSERT INTO agents (id, manager_id, full_name, payout_phone, created_at) VALUES ($1, $2, $3, $4, $5)`

	if _, err := r.pool.Exec(ctx, query, a.ID, a.ManagerID, a.FullName, a.PayoutPhone, a.CreatedAt); err != nil {
		return fmt.Errorf("insert agent: %w", err)
	}
	return nil
}

// GetManager returns nil, nil when no manager has id.
func (r *PartyRepo) GetManager(ctx context.Context, id uuid.UUID) (*domain.Manager, error) {
	query := `SELECT id, full_name, phone, created_at FROM managers WHERE id = $1`

	m := &domain.Manager{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&m.ID, &m.FullName, &m.Phone, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get manager: %w", err)
	}
	return m, nil
}

// GetAgent returns nil, nil when no agent has id.
func (r *PartyRepo) GetAgent(ctx context.Context, id uuid.UUID) (*domain.Agent, error) {
	query := `SELECT id, manager_id, full_name, payout_phone, created_at FROM agents WHERE id = $1`

	a := &domain.Agent{}
	err := r.pool.QueryRow(ctx, query, id).Scan(&a.ID, &a.ManagerID, &a.FullName, &a.PayoutPhone, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get agent: %w", err)
	}
	return a, nil
}
