package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/metrics"
	"insurance-settlement/internal/tracing"
	"insurance-settlement/pkg/apperror"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const receiptTTL = 7 * 24 * time.Hour

// SettlementOptions are the tunables of SettlementServiceImpl.
type SettlementOptions struct {
	CommissionRate decimal.Decimal // fraction of premium
	ValidityYears  int
	RenderAttempts int
	RenderBackoff  time.Duration
}

// SettlementServiceImpl implements ports.SettlementService.
type SettlementServiceImpl struct {
	transactor   ports.DBTransactor
	policyRepo   ports.PolicyRepository
	productRepo  ports.ProductRepository
	clientRepo   ports.ClientRepository
	partyRepo    ports.PartyRepository
	receiptRepo  ports.ReceiptRepository
	receiptCache ports.ReceiptCache // optional
	ledger       ports.Ledger
	inventory    ports.Inventory
	renderer     ports.CertificateRenderer
	notifier     ports.Notifier
	opts         SettlementOptions
	log          zerolog.Logger
	now          func() time.Time
}

// NewSettlementService creates a new SettlementServiceImpl.
func NewSettlementService(
	transactor ports.DBTransactor,
	policyRepo ports.PolicyRepository,
	productRepo ports.ProductRepository,
	clientRepo ports.ClientRepository,
	partyRepo ports.PartyRepository,
	receiptRepo ports.ReceiptRepository,
	receiptCache ports.ReceiptCache,
	ledger ports.Ledger,
	inventory ports.Inventory,
	renderer ports.CertificateRenderer,
	notifier ports.Notifier,
	opts SettlementOptions,
	log zerolog.Logger,
) *SettlementServiceImpl {
	if opts.ValidityYears < 1 {
		opts.ValidityYears = 1
	}
	if opts.RenderAttempts < 1 {
		opts.RenderAttempts = 1
	}
	return &SettlementServiceImpl{
		transactor:   transactor,
		policyRepo:   policyRepo,
		productRepo:  productRepo,
		clientRepo:   clientRepo,
		partyRepo:    partyRepo,
		receiptRepo:  receiptRepo,
		receiptCache: receiptCache,
		ledger:       ledger,
		inventory:    inventory,
		renderer:     renderer,
		notifier:     notifier,
		opts:         opts,
		log:          log,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// saleParties are the rows a settlement reads besides the policy itself.
type saleParties struct {
	product *domain.Product
	client  *domain.Client
	agent   *domain.Agent
}

// HandlePaymentResult applies the gateway's report on a premium payment.
func (s *SettlementServiceImpl) HandlePaymentResult(ctx context.Context, result domain.PaymentResult) (outcome ports.SettlementOutcome, err error) {
	ctx, span := tracing.StartSpan(ctx, "settlement.handle_payment_result",
		tracing.PolicyID(result.PolicyID.String()), tracing.Amount(result.Amount.StringFixed(2)))
	defer func() {
		if outcome != "" {
			metrics.PaymentResultsTotal.WithLabelValues(string(outcome)).Inc()
		}
		tracing.End(span, err)
	}()

	if !result.Succeeded() {
		return s.applyFailure(ctx, result)
	}

	if dup, err := s.receiptSeen(ctx, result.ReceiptID); err != nil || dup {
		if dup {
			s.log.Info().Str("receipt_id", result.ReceiptID).Msg("duplicate payment receipt ignored")
			return ports.OutcomeDuplicate, nil
		}
		return "", err
	}
	return s.applySuccess(ctx, result)
}

// receiptSeen checks Redis first, then the receipts table.
func (s *SettlementServiceImpl) receiptSeen(ctx context.Context, receiptID string) (bool, error) {
	if receiptID == "" {
		return false, nil
	}
	if s.receiptCache != nil {
		seen, err := s.receiptCache.Seen(ctx, receiptID)
		if err != nil {
			s.log.Warn().Err(err).Str("receipt_id", receiptID).Msg("redis receipt check failed, falling through to DB")
		}
		if seen {
			return true, nil
		}
	}
	rec, err := s.receiptRepo.Get(ctx, receiptID)
	if err != nil {
		return false, apperror.InternalError(fmt.Errorf("db receipt check: %w", err))
	}
	return rec != nil, nil
}

func (s *SettlementServiceImpl) applySuccess(ctx context.Context, result domain.PaymentResult) (ports.SettlementOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	policy, err := s.policyRepo.GetByIDForUpdate(ctx, dbTx, result.PolicyID)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("lock policy: %w", err))
	}
	if policy == nil {
		return "", apperror.ErrNotFound("policy")
	}
	if !policy.AwaitingPayment() {
		s.log.Info().
			Str("policy_id", policy.ID.String()).
			Str("status", string(policy.Status)).
			Msg("payment for settled policy ignored")
		return ports.OutcomeDuplicate, nil
	}

	parties, err := s.loadParties(ctx, policy)
	if err != nil {
		return "", err
	}
	if result.Amount.IsPositive() && !result.Amount.Equal(policy.Total) {
		s.log.Warn().
			Str("policy_id", policy.ID.String()).
			Str("paid", result.Amount.StringFixed(2)).
			Str("due", policy.Total.StringFixed(2)).
			Msg("paid amount differs from policy total")
	}

	if err := s.inventory.DecrementOne(ctx, dbTx, parties.product.StockKey()); err != nil {
		if apperror.HasCode(err, apperror.CodeStockExhausted) || apperror.HasCode(err, apperror.CodeNoStockConfigured) {
			_ = dbTx.Rollback(ctx)
			s.reportShortage(ctx, policy, parties, err)
		}
		return "", err
	}

	paidAt := s.now()
	start, expiry := domain.ValidityWindow(paidAt, s.opts.ValidityYears)
	stamp := ports.PaidStamp{PaidAt: paidAt, StartDate: start, ExpiryDate: expiry}
	if result.ReceiptID != "" {
		receipt := result.ReceiptID
		stamp.Receipt = &receipt
	}
	ok, err := s.policyRepo.MarkPaid(ctx, dbTx, policy.ID, stamp)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("mark policy paid: %w", err))
	}
	if !ok {
		return ports.OutcomeDuplicate, nil
	}

	commission := domain.Commission(policy.Premium, s.opts.CommissionRate)
	if commission.IsPositive() {
		if _, err := s.ledger.Credit(ctx, dbTx, parties.agent.ID, commission, domain.EntryKindCommissionEarned, &policy.ID); err != nil {
			return "", err
		}
	}

	if result.ReceiptID != "" {
		err := s.receiptRepo.Create(ctx, dbTx, &domain.PaymentReceipt{
			ReceiptID:  result.ReceiptID,
			PolicyID:   policy.ID,
			Amount:     result.Amount,
			ReceivedAt: paidAt,
		})
		if errors.Is(err, ports.ErrReceiptRecorded) {
			return ports.OutcomeDuplicate, nil
		}
		if err != nil {
			return "", apperror.InternalError(fmt.Errorf("record receipt: %w", err))
		}
	}

	if err := dbTx.Commit(ctx); err != nil {
		return "", apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	policy.Status = domain.PolicyStatusPaid
	policy.PaidAt, policy.StartDate, policy.ExpiryDate = &paidAt, &start, &expiry
	policy.PaymentReceipt = stamp.Receipt
	metrics.CommissionCreditedTotal.Add(commission.InexactFloat64())

	s.log.Info().
		Str("policy_id", policy.ID.String()).
		Str("agent_id", parties.agent.ID.String()).
		Str("receipt_id", result.ReceiptID).
		Str("amount", policy.Total.StringFixed(2)).
		Str("commission", commission.StringFixed(2)).
		Msg("payment settled")

	// The payment is committed; nothing below may undo it.
	post := context.WithoutCancel(ctx)
	if result.ReceiptID != "" && s.receiptCache != nil {
		if err := s.receiptCache.Remember(post, result.ReceiptID, receiptTTL); err != nil {
			s.log.Warn().Err(err).Str("receipt_id", result.ReceiptID).Msg("failed to cache receipt in redis")
		}
	}
	s.issueCertificate(post, policy, parties)

	paid := policy.Total
	if result.Amount.IsPositive() {
		paid = result.Amount
	}
	notify(post, s.notifier, parties.agent.ID, nil, domain.EventPaymentReceived,
		"Payment of KES %s received for policy %s. Your commission of KES %s has been credited.",
		paid.StringFixed(2), policy.ID, commission.StringFixed(2))
	notify(post, s.notifier, parties.agent.ManagerID, &parties.agent.ID, domain.EventPolicySold,
		"Agent %s sold a policy (%s). Payment of KES %s received.",
		parties.agent.FullName, parties.product.Name, paid.StringFixed(2))

	return ports.OutcomeSettled, nil
}

func (s *SettlementServiceImpl) applyFailure(ctx context.Context, result domain.PaymentResult) (ports.SettlementOutcome, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	policy, err := s.policyRepo.GetByIDForUpdate(ctx, dbTx, result.PolicyID)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("lock policy: %w", err))
	}
	if policy == nil {
		return "", apperror.ErrNotFound("policy")
	}

	reason := result.ResultDescription
	if reason == "" {
		reason = fmt.Sprintf("gateway result code %d", result.ResultCode)
	}
	ok, err := s.policyRepo.MarkFailed(ctx, dbTx, policy.ID, reason)
	if err != nil {
		return "", apperror.InternalError(fmt.Errorf("mark policy failed: %w", err))
	}
	if !ok {
		s.log.Info().
			Str("policy_id", policy.ID.String()).
			Str("status", string(policy.Status)).
			Msg("payment failure for settled policy ignored")
		return ports.OutcomeDuplicate, nil
	}
	if err := dbTx.Commit(ctx); err != nil {
		return "", apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("policy_id", policy.ID.String()).
		Int("result_code", result.ResultCode).
		Str("reason", reason).
		Msg("payment failed")

	notify(context.WithoutCancel(ctx), s.notifier, policy.AgentID, nil, domain.EventPaymentFailed,
		"Payment for policy %s failed: %s", policy.ID, reason)
	return ports.OutcomePaymentFailed, nil
}

func (s *SettlementServiceImpl) loadParties(ctx context.Context, policy *domain.Policy) (*saleParties, error) {
	product, err := s.productRepo.GetByID(ctx, policy.ProductID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get product: %w", err))
	}
	client, err := s.clientRepo.GetByID(ctx, policy.ClientID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get client: %w", err))
	}
	agent, err := s.partyRepo.GetAgent(ctx, policy.AgentID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get agent: %w", err))
	}
	if product == nil || client == nil || agent == nil {
		return nil, apperror.InternalError(fmt.Errorf("policy %s references missing product, client or agent", policy.ID))
	}
	return &saleParties{product: product, client: client, agent: agent}, nil
}

func (s *SettlementServiceImpl) reportShortage(ctx context.Context, policy *domain.Policy, parties *saleParties, cause error) {
	reason := "empty"
	if apperror.HasCode(cause, apperror.CodeNoStockConfigured) {
		reason = "not_configured"
	}
	metrics.StockRejectionsTotal.WithLabelValues(reason).Inc()

	s.log.Warn().
		Str("policy_id", policy.ID.String()).
		Str("manager_id", parties.agent.ManagerID.String()).
		Str("product_class", parties.product.Name).
		Str("reason", reason).
		Msg("settlement rejected: no certificate stock")

	notify(context.WithoutCancel(ctx), s.notifier, parties.agent.ManagerID, &parties.agent.ID, domain.EventStockShortage,
		"No %s certificates left for a paid policy (%s) sold by %s. Please replenish your stock.",
		parties.product.Name, policy.ID, parties.agent.FullName)
}

// issueCertificate renders with bounded exponential backoff. A failure is
// logged and left for RetryCertificates.
func (s *SettlementServiceImpl) issueCertificate(ctx context.Context, policy *domain.Policy, parties *saleParties) bool {
	req := domain.CertificateRequest{
		Policy:      *policy,
		ClientName:  parties.client.FullName,
		ProductName: parties.product.Name,
		AgentName:   parties.agent.FullName,
	}

	b := backoff.NewExponentialBackOff()
	if s.opts.RenderBackoff > 0 {
		b.InitialInterval = s.opts.RenderBackoff
	}
	var ref string
	err := backoff.Retry(func() error {
		var err error
		ref, err = s.renderer.Render(ctx, req)
		return err
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.opts.RenderAttempts-1)), ctx))
	if err != nil {
		metrics.CertificateRenderFailuresTotal.Inc()
		s.log.Error().Err(err).
			Str("policy_id", policy.ID.String()).
			Int("attempts", s.opts.RenderAttempts).
			Msg("certificate rendering failed, will retry later")
		return false
	}

	attached, err := s.policyRepo.AttachCertificate(ctx, policy.ID, ref)
	if err != nil {
		s.log.Error().Err(err).Str("policy_id", policy.ID.String()).Msg("failed to attach certificate")
		return false
	}
	if attached {
		policy.CertificateRef = &ref
	}
	return attached
}

// RetryCertificates renders certificates for paid policies that have none.
// It returns how many were issued.
func (s *SettlementServiceImpl) RetryCertificates(ctx context.Context, limit int) (int, error) {
	policies, err := s.policyRepo.ListAwaitingCertificate(ctx, limit)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("list policies awaiting certificate: %w", err))
	}

	issued := 0
	for i := range policies {
		policy := &policies[i]
		parties, err := s.loadParties(ctx, policy)
		if err != nil {
			s.log.Error().Err(err).Str("policy_id", policy.ID.String()).Msg("cannot load policy for certificate retry")
			continue
		}
		if s.issueCertificate(ctx, policy, parties) {
			issued++
		}
	}
	if issued > 0 {
		s.log.Info().Int("issued", issued).Int("pending", len(policies)).Msg("certificates reissued")
	}
	return issued, nil
}

var _ ports.SettlementService = (*SettlementServiceImpl)(nil)
