package service

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

type inventoryService struct {
	stockRepo ports.StockRepository
	log       zerolog.Logger
}

// NewInventoryService creates a certificate inventory backed by stockRepo.
func NewInventoryService(stockRepo ports.StockRepository, log zerolog.Logger) ports.Inventory {
	return &inventoryService{stockRepo: stockRepo, log: log}
}

// DecrementOne consumes one certificate inside tx.
func (s *inventoryService) DecrementOne(ctx context.Context, tx pgx.Tx, key domain.StockKey) error {
	remaining, err := s.stockRepo.DecrementOne(ctx, tx, key)
	switch {
	case errors.Is(err, ports.ErrStockNotConfigured):
		return apperror.ErrNoStockConfigured()
	case errors.Is(err, ports.ErrStockEmpty):
		return apperror.ErrStockExhausted()
	case err != nil:
		return apperror.InternalError(fmt.Errorf("decrement stock: %w", err))
	}

	s.log.Debug().
		Str("manager_id", key.ManagerID.String()).
		Str("insurer_id", key.InsurerID.String()).
		Str("product_class", key.ProductClass).
		Int("remaining", remaining).
		Msg("certificate consumed")
	return nil
}

// Replenish adds quantity certificates, creating the stock row on first use.
func (s *inventoryService) Replenish(ctx context.Context, key domain.StockKey, quantity int) (*domain.CertificateStock, error) {
	if quantity < 1 {
		return nil, apperror.Validation("quantity must be at least 1")
	}
	if key.ProductClass == "" {
		return nil, apperror.Validation("product class is required")
	}
	stock, err := s.stockRepo.Replenish(ctx, key, quantity)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("replenish stock: %w", err))
	}
	s.log.Info().
		Str("manager_id", key.ManagerID.String()).
		Str("product_class", key.ProductClass).
		Int("added", quantity).
		Int("quantity", stock.Quantity).
		Msg("certificate stock replenished")
	return stock, nil
}

func (s *inventoryService) ListForManager(ctx context.Context, managerID uuid.UUID) ([]domain.CertificateStock, error) {
	rows, err := s.stockRepo.ListByManager(ctx, managerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list stock: %w", err))
	}
	return rows, nil
}
