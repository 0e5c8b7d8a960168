package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const policyListLimit = 100

// PolicyServiceImpl implements ports.PolicyService.
type PolicyServiceImpl struct {
	policyRepo  ports.PolicyRepository
	productRepo ports.ProductRepository
	clientRepo  ports.ClientRepository
	taxRate     decimal.Decimal // percent
	log         zerolog.Logger
	now         func() time.Time
}

// NewPolicyService creates a new PolicyServiceImpl.
func NewPolicyService(
	policyRepo ports.PolicyRepository,
	productRepo ports.ProductRepository,
	clientRepo ports.ClientRepository,
	taxRatePercent decimal.Decimal,
	log zerolog.Logger,
) *PolicyServiceImpl {
	return &PolicyServiceImpl{
		policyRepo:  policyRepo,
		productRepo: productRepo,
		clientRepo:  clientRepo,
		taxRate:     taxRatePercent,
		log:         log,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreatePolicy prices the product for the client and stores the policy
// awaiting payment.
func (s *PolicyServiceImpl) CreatePolicy(ctx context.Context, agent domain.Agent, req ports.CreatePolicyRequest) (*domain.Policy, error) {
	name := strings.TrimSpace(req.ClientName)
	if name == "" {
		return nil, apperror.Validation("client name is required")
	}

	product, err := s.productRepo.GetByID(ctx, req.ProductID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get product: %w", err))
	}
	if product == nil {
		return nil, apperror.ErrNotFound("product")
	}
	if product.ManagerID != agent.ManagerID {
		return nil, apperror.ErrUnauthorized()
	}

	charges, err := domain.ComputeCharges(product.Calculation, req.InsuredValue, s.taxRate)
	if errors.Is(err, domain.ErrInsuredValueRequired) {
		return nil, apperror.Validation(err.Error())
	}
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("compute charges: %w", err))
	}

	now := s.now()
	client := &domain.Client{
		ID:        uuid.New(),
		AgentID:   agent.ID,
		FullName:  name,
		Phone:     strings.TrimSpace(req.ClientPhone),
		CreatedAt: now,
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create client: %w", err))
	}

	policy := &domain.Policy{
		ID:           uuid.New(),
		ClientID:     client.ID,
		ProductID:    product.ID,
		AgentID:      agent.ID,
		InsuredValue: req.InsuredValue,
		Premium:      charges.Premium,
		Tax:          charges.Tax,
		Total:        charges.Total,
		Status:       domain.PolicyStatusPendingPayment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.policyRepo.Create(ctx, policy); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create policy: %w", err))
	}

	s.log.Info().
		Str("policy_id", policy.ID.String()).
		Str("agent_id", agent.ID.String()).
		Str("product", product.Name).
		Str("total", policy.Total.StringFixed(2)).
		Msg("policy created")
	return policy, nil
}

// GetPolicy returns one of the agent's policies with its derived status.
func (s *PolicyServiceImpl) GetPolicy(ctx context.Context, agent domain.Agent, id uuid.UUID) (*domain.Policy, error) {
	policy, err := s.policyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get policy: %w", err))
	}
	if policy == nil || policy.AgentID != agent.ID {
		return nil, apperror.ErrNotFound("policy")
	}
	policy.Status = policy.EffectiveStatus(s.now())
	return policy, nil
}

func (s *PolicyServiceImpl) ListPolicies(ctx context.Context, agent domain.Agent) ([]domain.Policy, error) {
	policies, err := s.policyRepo.ListByAgent(ctx, agent.ID, policyListLimit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list policies: %w", err))
	}
	now := s.now()
	for i := range policies {
		policies[i].Status = policies[i].EffectiveStatus(now)
	}
	return policies, nil
}
