package service

import (
	"context"
	"errors"
	"fmt"

	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type reconciliationIndex struct {
	ledgerRepo ports.LedgerRepository
	log        zerolog.Logger
}

// NewReconciliationIndex maps gateway correlation ids onto ledger entries
// through the unique correlation_id column.
func NewReconciliationIndex(ledgerRepo ports.LedgerRepository, log zerolog.Logger) ports.ReconciliationIndex {
	return &reconciliationIndex{ledgerRepo: ledgerRepo, log: log}
}

// Associate binds correlationID to entryID. Binding the same pair twice is a no-op.
func (r *reconciliationIndex) Associate(ctx context.Context, entryID uuid.UUID, correlationID string) error {
	if correlationID == "" {
		return apperror.Validation("correlation id is required")
	}
	err := r.ledgerRepo.SetCorrelationID(ctx, entryID, correlationID)
	if errors.Is(err, ports.ErrCorrelationTaken) {
		r.log.Warn().
			Str("entry_id", entryID.String()).
			Str("correlation_id", correlationID).
			Msg("correlation id conflict")
		return apperror.ErrCorrelationConflict()
	}
	if err != nil {
		return apperror.InternalError(fmt.Errorf("associate correlation id: %w", err))
	}
	return nil
}

// Lookup returns the entry bound to correlationID, or nil.
func (r *reconciliationIndex) Lookup(ctx context.Context, correlationID string) (*uuid.UUID, error) {
	entry, err := r.ledgerRepo.GetByCorrelationID(ctx, correlationID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lookup correlation id: %w", err))
	}
	if entry == nil {
		return nil, nil
	}
	id := entry.ID
	return &id, nil
}
