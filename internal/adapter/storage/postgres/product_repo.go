package postgres

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// ProductRepo implements ports.ProductRepository. The premium strategy is
// stored as (calculation_kind, rate).
type ProductRepo struct {
	pool Pool
}

// NewProductRepo creates a new ProductRepo.
func NewProductRepo(pool Pool) *ProductRepo {
	return &ProductRepo{pool: pool}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *domain.Product) error {
	if p.Calculation == nil {
		return fmt.Errorf("insert product: missing premium calculation")
	}
	query := `INSERT INTO products (id, manager_id, insurer_id, name, calculation_kind, rate, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.pool.Exec(ctx, query,
		p.ID, p.ManagerID, p.InsurerID, p.Name, p.Calculation.Kind(), p.Calculation.Rate(), p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID fetches a product and rebuilds its premium strategy.
func (r *ProductRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	query := `SELECT id, manager_id, insurer_id, name, calculation_kind, rate, created_at FROM products WHERE id = $1`

	p := &domain.Product{}
	var kind domain.CalculationKind
	var rate decimal.Decimal
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.ManagerID, &p.InsurerID, &p.Name, &kind, &rate, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get product by id: %w", err)
	}

	p.Calculation, err = domain.NewPremiumCalculation(kind, rate)
	if err != nil {
		return nil, fmt.Errorf("product %s: %w", id, err)
	}
	return p, nil
}
