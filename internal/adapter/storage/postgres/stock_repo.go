package postgres

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const stockColumns = `id, manager_id, insurer_id, product_class, quantity, updated_at`

// StockRepo implements ports.StockRepository.
type StockRepo struct {
	pool Pool
}

// NewStockRepo creates a new StockRepo.
func NewStockRepo(pool Pool) *StockRepo {
	return &StockRepo{pool: pool}
}

// DecrementOne takes one certificate with a single conditional update, so two
// settlements can never both take the last unit.
func (r *StockRepo) DecrementOne(ctx context.Context, tx pgx.Tx, key domain.StockKey) (int, error) {
	query := `UPDATE certificate_stock SET quantity = quantity - 1, updated_at = NOW()
		WHERE manager_id = $1 AND insurer_id = $2 AND product_class = $3 AND quantity > 0
		RETURNING quantity`

	var remaining int
	err := tx.QueryRow(ctx, query, key.ManagerID, key.InsurerID, key.ProductClass).Scan(&remaining)
	if err == nil {
		return remaining, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("decrement stock: %w", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM certificate_stock WHERE manager_id = $1 AND insurer_id = $2 AND product_class = $3)`,
		key.ManagerID, key.InsurerID, key.ProductClass,
	).Scan(&exists)
	if err != nil {
		return 0, fmt.Errorf("check stock exists: %w", err)
	}
	if exists {
		return 0, ports.ErrStockEmpty
	}
	return 0, ports.ErrStockNotConfigured
}

// Replenish adds quantity to the row for key, creating it on first use.
func (r *StockRepo) Replenish(ctx context.Context, key domain.StockKey, quantity int) (*domain.CertificateStock, error) {
	query := `INSERT INTO certificate_stock (id, manager_id, insurer_id, product_class, quantity, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (manager_id, insurer_id, product_class)
		DO UPDATE SET quantity = certificate_stock.quantity + EXCLUDED.quantity, updated_at = NOW()
		RETURNING ` + stockColumns

	s, err := scanStock(r.pool.QueryRow(ctx, query, uuid.New(), key.ManagerID, key.InsurerID, key.ProductClass, quantity))
	if err != nil {
		return nil, fmt.Errorf("replenish stock: %w", err)
	}
	return s, nil
}

// Get fetches the stock row for key.
func (r *StockRepo) Get(ctx context.Context, key domain.StockKey) (*domain.CertificateStock, error) {
	query := `SELECT ` + stockColumns + ` FROM certificate_stock
		WHERE manager_id = $1 AND insurer_id = $2 AND product_class = $3`

	s, err := scanStock(r.pool.QueryRow(ctx, query, key.ManagerID, key.InsurerID, key.ProductClass))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return s, nil
}

// ListByManager returns every stock row a manager holds.
func (r *StockRepo) ListByManager(ctx context.Context, managerID uuid.UUID) ([]domain.CertificateStock, error) {
	query := `SELECT ` + stockColumns + ` FROM certificate_stock WHERE manager_id = $1 ORDER BY product_class`

	rows, err := r.pool.Query(ctx, query, managerID)
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	var out []domain.CertificateStock
	for rows.Next() {
		s, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock row: %w", err)
		}
		out = append(out, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock rows: %w", err)
	}
	return out, nil
}

func scanStock(row pgx.Row) (*domain.CertificateStock, error) {
	s := &domain.CertificateStock{}
	if err := row.Scan(&s.ID, &s.ManagerID, &s.InsurerID, &s.ProductClass, &s.Quantity, &s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}
