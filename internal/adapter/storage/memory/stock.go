package memory

import (
	"context"
	"fmt"
	"sort"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// StockRepo implements ports.StockRepository.
type StockRepo struct{ s *Store }

func (s *Store) Stock() *StockRepo { return &StockRepo{s: s} }

func (r *StockRepo) DecrementOne(_ context.Context, tx pgx.Tx, key domain.StockKey) (int, error) {
	mt, err := r.s.open(tx)
	if err != nil {
		return 0, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.stock[key]
	if !ok {
		return 0, ports.ErrStockNotConfigured
	}
	if row.Quantity < 1 {
		return 0, ports.ErrStockEmpty
	}
	// Relative undo so a concurrent Replenish is not lost.
	mt.onRollback(func() { row.Quantity++ })
	row.Quantity--
	row.UpdatedAt = r.s.now()
	return row.Quantity, nil
}

func (r *StockRepo) Replenish(_ context.Context, key domain.StockKey, quantity int) (*domain.CertificateStock, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("replenish stock: quantity must be positive")
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	row, ok := r.s.stock[key]
	if !ok {
		row = &domain.CertificateStock{ID: uuid.New(), StockKey: key}
		r.s.stock[key] = row
	}
	row.Quantity += quantity
	row.UpdatedAt = r.s.now()
	cp := *row
	return &cp, nil
}

func (r *StockRepo) Get(_ context.Context, key domain.StockKey) (*domain.CertificateStock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.stock[key]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (r *StockRepo) ListByManager(_ context.Context, managerID uuid.UUID) ([]domain.CertificateStock, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []domain.CertificateStock
	for key, row := range r.s.stock {
		if key.ManagerID == managerID {
			out = append(out, *row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductClass < out[j].ProductClass })
	return out, nil
}
