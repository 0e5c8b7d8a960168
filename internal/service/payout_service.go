package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/metrics"
	"insurance-settlement/internal/tracing"
	"insurance-settlement/pkg/apperror"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const idempotencyTTL = 24 * time.Hour

// PayoutOptions are the tunables of PayoutServiceImpl.
type PayoutOptions struct {
	MinimumAmount     decimal.Decimal
	ProcessingTimeout time.Duration
	SweepBatchSize    int
	AssociateAttempts int
}

// PayoutServiceImpl implements ports.PayoutService.
type PayoutServiceImpl struct {
	transactor ports.DBTransactor
	ledgerRepo ports.LedgerRepository
	walletRepo ports.WalletRepository
	partyRepo  ports.PartyRepository
	idempRepo  ports.IdempotencyRepository
	idempCache ports.IdempotencyCache // optional
	ledger     ports.Ledger
	recon      ports.ReconciliationIndex
	gateway    ports.PaymentGateway
	notifier   ports.Notifier
	opts       PayoutOptions
	log        zerolog.Logger
}

// NewPayoutService creates a new PayoutServiceImpl.
func NewPayoutService(
	transactor ports.DBTransactor,
	ledgerRepo ports.LedgerRepository,
	walletRepo ports.WalletRepository,
	partyRepo ports.PartyRepository,
	idempRepo ports.IdempotencyRepository,
	idempCache ports.IdempotencyCache,
	ledger ports.Ledger,
	recon ports.ReconciliationIndex,
	gateway ports.PaymentGateway,
	notifier ports.Notifier,
	opts PayoutOptions,
	log zerolog.Logger,
) *PayoutServiceImpl {
	if opts.SweepBatchSize <= 0 {
		opts.SweepBatchSize = 100
	}
	if opts.AssociateAttempts < 1 {
		opts.AssociateAttempts = 3
	}
	return &PayoutServiceImpl{
		transactor: transactor,
		ledgerRepo: ledgerRepo,
		walletRepo: walletRepo,
		partyRepo:  partyRepo,
		idempRepo:  idempRepo,
		idempCache: idempCache,
		ledger:     ledger,
		recon:      recon,
		gateway:    gateway,
		notifier:   notifier,
		opts:       opts,
		log:        log,
	}
}

// RequestWithdrawal places a hold on the agent's commission balance.
// A repeated idempotency key returns the first hold instead of a new one.
func (s *PayoutServiceImpl) RequestWithdrawal(ctx context.Context, agent domain.Agent, req ports.WithdrawalRequest) (*domain.LedgerEntry, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.ErrInvalidAmount()
	}
	if req.Amount.LessThan(s.opts.MinimumAmount) {
		return nil, apperror.ErrBelowMinimumWithdrawal(s.opts.MinimumAmount.StringFixed(2))
	}

	var idempKey string
	if req.IdempotencyKey != "" {
		idempKey = domain.BuildWithdrawalIdempotencyKey(agent.ID, req.IdempotencyKey)
		if entry, err := s.lookupIdempotent(ctx, idempKey); err != nil || entry != nil {
			return entry, err
		}
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.ledger.HoldForWithdrawal(ctx, dbTx, agent.ID, req.Amount)
	if err != nil {
		return nil, err
	}

	var respJSON []byte
	if idempKey != "" {
		respJSON, err = json.Marshal(entry)
		if err != nil {
			return nil, apperror.InternalError(fmt.Errorf("marshal response: %w", err))
		}
		err = s.idempRepo.Create(ctx, dbTx, &domain.IdempotencyLog{
			Key:          idempKey,
			EntryID:      entry.ID,
			ResponseJSON: respJSON,
			CreatedAt:    entry.CreatedAt,
		})
		if err != nil {
			// A concurrent request with the same key may have won; its hold stands.
			_ = dbTx.Rollback(ctx)
			if first, lookupErr := s.lookupIdempotent(ctx, idempKey); lookupErr == nil && first != nil {
				return first, nil
			}
			return nil, apperror.InternalError(fmt.Errorf("save idempotency log: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	if idempKey != "" && s.idempCache != nil {
		if err := s.idempCache.Set(ctx, idempKey, respJSON, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", idempKey).Msg("failed to cache idempotency in redis")
		}
	}
	metrics.PayoutsTotal.WithLabelValues("requested").Inc()

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("agent_id", agent.ID.String()).
		Str("amount", req.Amount.StringFixed(2)).
		Msg("withdrawal requested")

	notify(context.WithoutCancel(ctx), s.notifier, agent.ManagerID, &agent.ID, domain.EventWithdrawalRequest,
		"Agent %s requested a withdrawal of KES %s.", agent.FullName, req.Amount.StringFixed(2))
	return entry, nil
}

// lookupIdempotent checks Redis, then the idempotency_logs table.
func (s *PayoutServiceImpl) lookupIdempotent(ctx context.Context, key string) (*domain.LedgerEntry, error) {
	if s.idempCache != nil {
		cached, err := s.idempCache.Get(ctx, key)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("redis idempotency check failed, falling through to DB")
		}
		if cached != nil {
			return decodeEntry(cached)
		}
	}
	idempLog, err := s.idempRepo.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("db idempotency check: %w", err))
	}
	if idempLog == nil {
		return nil, nil
	}
	return decodeEntry(idempLog.ResponseJSON)
}

func decodeEntry(data []byte) (*domain.LedgerEntry, error) {
	entry := &domain.LedgerEntry{}
	if err := json.Unmarshal(data, entry); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("unmarshal cached entry: %w", err))
	}
	return entry, nil
}

// ApproveWithdrawal claims a pending request and submits it to the gateway.
func (s *PayoutServiceImpl) ApproveWithdrawal(ctx context.Context, manager domain.Manager, entryID uuid.UUID) (_ *domain.LedgerEntry, err error) {
	ctx, span := tracing.StartSpan(ctx, "payout.approve_withdrawal", tracing.EntryID(entryID.String()))
	defer func() { tracing.End(span, err) }()

	entry, err := s.ledgerRepo.GetByID(ctx, entryID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get ledger entry: %w", err))
	}
	if entry == nil {
		return nil, apperror.ErrNotFound("withdrawal")
	}
	if !entry.IsAwaitingApproval() {
		return nil, apperror.ErrNotPending()
	}
	agent, err := s.walletAgent(ctx, entry.WalletID)
	if err != nil {
		return nil, err
	}
	if agent == nil || !agent.ManagedBy(manager) {
		return nil, apperror.ErrUnauthorized()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err = s.ledger.MarkProcessing(ctx, dbTx, entryID)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	amount := entry.HeldAmount()
	submission, err := s.gateway.SubmitPayout(ctx, domain.PayoutInstruction{
		Amount:                amount,
		DestinationPhone:      agent.PayoutPhone,
		Remarks:               fmt.Sprintf("Commission payout for transaction %s", entry.ID),
		InternalTransactionID: entry.ID,
	})
	if err != nil {
		s.log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("payout submission failed, refunding hold")
		if _, refundErr := s.finalize(context.WithoutCancel(ctx), entry.ID, domain.HoldRejected, nil); refundErr != nil {
			s.log.Error().Err(refundErr).Str("entry_id", entry.ID.String()).Msg("failed to refund hold after submission failure")
		} else {
			notify(context.WithoutCancel(ctx), s.notifier, agent.ID, &manager.ID, domain.EventWithdrawalFailed,
				"Your withdrawal of KES %s could not be sent. The amount has been returned to your wallet.", amount.StringFixed(2))
		}
		metrics.PayoutsTotal.WithLabelValues("rejected").Inc()
		return nil, apperror.ErrGatewayUnavailable(err)
	}

	correlationID := submission.OriginatorConversationID
	span.SetAttributes(tracing.CorrelationID(correlationID))
	if err := s.associate(ctx, entry.ID, correlationID); err != nil {
		// The payout is in flight; its result will not match until this is repaired.
		s.log.Error().Err(err).
			Str("entry_id", entry.ID.String()).
			Str("correlation_id", correlationID).
			Msg("failed to record payout correlation id")
	} else {
		entry.CorrelationID = &correlationID
	}
	metrics.PayoutsTotal.WithLabelValues("submitted").Inc()

	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("manager_id", manager.ID.String()).
		Str("correlation_id", correlationID).
		Str("amount", amount.StringFixed(2)).
		Msg("withdrawal approved and submitted")

	notify(context.WithoutCancel(ctx), s.notifier, agent.ID, &manager.ID, domain.EventWithdrawalApproved,
		"Your withdrawal of KES %s has been approved and is being sent to %s.", amount.StringFixed(2), agent.PayoutPhone)
	return entry, nil
}

// associate retries transient failures; a conflict is permanent.
func (s *PayoutServiceImpl) associate(ctx context.Context, entryID uuid.UUID, correlationID string) error {
	b := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(s.opts.AssociateAttempts-1))
	return backoff.Retry(func() error {
		err := s.recon.Associate(ctx, entryID, correlationID)
		if apperror.HasCode(err, apperror.CodeCorrelationConflict) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
}

// walletAgent resolves the agent owning walletID, or nil when the owner is not an agent.
func (s *PayoutServiceImpl) walletAgent(ctx context.Context, walletID uuid.UUID) (*domain.Agent, error) {
	wallet, err := s.walletRepo.GetByID(ctx, walletID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrNotFound("wallet")
	}
	agent, err := s.partyRepo.GetAgent(ctx, wallet.OwnerID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get agent: %w", err))
	}
	return agent, nil
}

func (s *PayoutServiceImpl) ListPendingWithdrawals(ctx context.Context, manager domain.Manager) ([]domain.LedgerEntry, error) {
	entries, err := s.ledgerRepo.ListPendingWithdrawals(ctx, manager.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list pending withdrawals: %w", err))
	}
	return entries, nil
}

// HandlePayoutResult completes or refunds the payout the result refers to.
// Unknown and already-finalized payouts are logged and acknowledged.
func (s *PayoutServiceImpl) HandlePayoutResult(ctx context.Context, result domain.PayoutResult) (err error) {
	ctx, span := tracing.StartSpan(ctx, "payout.handle_result", tracing.CorrelationID(result.OriginatorConversationID))
	defer func() { tracing.End(span, err) }()

	entryID, err := s.recon.Lookup(ctx, result.OriginatorConversationID)
	if err != nil {
		return err
	}
	if entryID == nil {
		s.log.Warn().
			Str("correlation_id", result.OriginatorConversationID).
			Int("result_code", result.ResultCode).
			Msg("payout result for unknown correlation id")
		return nil
	}
	span.SetAttributes(tracing.EntryID(entryID.String()))

	entry, err := s.ledgerRepo.GetByID(ctx, *entryID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get ledger entry: %w", err))
	}
	if entry == nil {
		return apperror.ErrNotFound("withdrawal")
	}
	if !entry.IsProcessing() {
		s.alreadyFinalized(entry, result)
		return nil
	}
	agent, err := s.walletAgent(ctx, entry.WalletID)
	if err != nil {
		return err
	}
	if agent == nil {
		return apperror.InternalError(fmt.Errorf("withdrawal %s is not owned by an agent", entry.ID))
	}

	amount := entry.HeldAmount().StringFixed(2)
	if !result.Succeeded() {
		if _, err := s.finalize(ctx, entry.ID, domain.HoldRejected, nil); err != nil {
			if apperror.HasCode(err, apperror.CodeInvalidState) {
				s.alreadyFinalized(entry, result)
				return nil
			}
			return err
		}
		metrics.PayoutsTotal.WithLabelValues("rejected").Inc()
		s.log.Warn().
			Str("entry_id", entry.ID.String()).
			Int("result_code", result.ResultCode).
			Str("reason", result.ResultDescription).
			Msg("payout failed, hold refunded")
		notify(context.WithoutCancel(ctx), s.notifier, agent.ID, nil, domain.EventWithdrawalFailed,
			"Your withdrawal of KES %s failed: %s. The amount has been returned to your wallet.", amount, result.ResultDescription)
		return nil
	}

	if err := s.complete(ctx, entry, agent, result.TransactionID); err != nil {
		if apperror.HasCode(err, apperror.CodeInvalidState) {
			s.alreadyFinalized(entry, result)
			return nil
		}
		return err
	}
	metrics.PayoutsTotal.WithLabelValues("completed").Inc()
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("transaction_id", result.TransactionID).
		Str("amount", amount).
		Msg("payout completed")
	notify(context.WithoutCancel(ctx), s.notifier, agent.ID, nil, domain.EventWithdrawalPaid,
		"Your withdrawal of KES %s has been sent. Transaction %s.", amount, result.TransactionID)
	return nil
}

// complete finalizes the hold and records the manager-side payout debit.
func (s *PayoutServiceImpl) complete(ctx context.Context, entry *domain.LedgerEntry, agent *domain.Agent, transactionID string) error {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	var ref *string
	if transactionID != "" {
		ref = &transactionID
	}
	if _, err := s.ledger.FinalizeHold(ctx, dbTx, entry.ID, domain.HoldCompleted, ref); err != nil {
		return err
	}
	_, err = s.ledger.RecordEntry(ctx, dbTx, agent.ManagerID, entry.HeldAmount().Neg(), domain.EntryKindPayoutDebit, domain.EntryStatusCompleted)
	if apperror.HasCode(err, apperror.CodeNotFound) {
		s.log.Error().
			Str("entry_id", entry.ID.String()).
			Str("manager_id", agent.ManagerID.String()).
			Msg("manager has no wallet, payout debit not recorded")
	} else if err != nil {
		return err
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return nil
}

func (s *PayoutServiceImpl) alreadyFinalized(entry *domain.LedgerEntry, result domain.PayoutResult) {
	latest, err := s.ledgerRepo.GetByID(context.Background(), entry.ID)
	if err == nil && latest != nil {
		entry = latest
	}
	if result.Succeeded() && entry.Kind == domain.EntryKindWithdrawalRejected {
		s.log.Error().
			Str("entry_id", entry.ID.String()).
			Str("correlation_id", result.OriginatorConversationID).
			Str("transaction_id", result.TransactionID).
			Str("amount", entry.HeldAmount().StringFixed(2)).
			Msg("payout succeeded after the hold was refunded, manual reconciliation required")
		return
	}
	s.log.Info().
		Str("entry_id", entry.ID.String()).
		Str("kind", string(entry.Kind)).
		Int("result_code", result.ResultCode).
		Msg("payout result for finalized withdrawal ignored")
}

// finalize runs FinalizeHold in its own transaction.
func (s *PayoutServiceImpl) finalize(ctx context.Context, entryID uuid.UUID, outcome domain.HoldOutcome, ref *string) (*domain.LedgerEntry, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	entry, err := s.ledger.FinalizeHold(ctx, dbTx, entryID, outcome, ref)
	if err != nil {
		return nil, err
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return entry, nil
}

// HandlePayoutTimeout only logs; SweepStalePayouts resolves the payout.
func (s *PayoutServiceImpl) HandlePayoutTimeout(_ context.Context, payload map[string]any) {
	metrics.PayoutsTotal.WithLabelValues("timeout").Inc()
	s.log.Warn().Interface("payload", payload).Msg("payout queue timeout reported by gateway")
}

// SweepStalePayouts refunds payouts that stayed in processing longer than
// the configured timeout. It returns how many were refunded.
func (s *PayoutServiceImpl) SweepStalePayouts(ctx context.Context, now time.Time) (int, error) {
	if s.opts.ProcessingTimeout <= 0 {
		return 0, nil
	}
	stale, err := s.ledgerRepo.ListStaleProcessing(ctx, now.Add(-s.opts.ProcessingTimeout), s.opts.SweepBatchSize)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list stale payouts: %w", err))
	}

	swept := 0
	for i := range stale {
		entry := &stale[i]
		if _, err := s.finalize(ctx, entry.ID, domain.HoldRejected, nil); err != nil {
			if !apperror.HasCode(err, apperror.CodeInvalidState) {
				s.log.Error().Err(err).Str("entry_id", entry.ID.String()).Msg("failed to refund stale payout")
			}
			continue
		}
		swept++
		metrics.PayoutsTotal.WithLabelValues("swept").Inc()

		correlation := ""
		if entry.CorrelationID != nil {
			correlation = *entry.CorrelationID
		}
		s.log.Warn().
			Str("entry_id", entry.ID.String()).
			Str("correlation_id", correlation).
			Time("processing_since", entry.UpdatedAt).
			Msg("stale payout refunded")

		agent, err := s.walletAgent(ctx, entry.WalletID)
		if err == nil && agent != nil {
			notify(ctx, s.notifier, agent.ID, nil, domain.EventWithdrawalFailed,
				"Your withdrawal of KES %s was not confirmed by the payment provider. The amount has been returned to your wallet.",
				entry.HeldAmount().StringFixed(2))
		}
	}
	return swept, nil
}

var _ ports.PayoutService = (*PayoutServiceImpl)(nil)
