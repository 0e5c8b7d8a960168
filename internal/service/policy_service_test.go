package service

import (
	"context"
	"testing"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyService_CreatePolicy_Charges(t *testing.T) {
	f := newFixture(t)

	p := f.createPolicy(t, "1000000")

	assert.True(t, p.Premium.Equal(dec("50000")), "premium %s", p.Premium)
	assert.True(t, p.Tax.Equal(dec("8000")), "tax %s", p.Tax)
	assert.True(t, p.Total.Equal(dec("58000")), "total %s", p.Total)
	assert.Equal(t, domain.PolicyStatusPendingPayment, p.Status)
	assert.Equal(t, f.agent.ID, p.AgentID)

	client, err := f.store.Clients().GetByID(context.Background(), p.ClientID)
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "Jane Doe", client.FullName)
}

func TestPolicyService_CreatePolicy_FlatRate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	flat := domain.Product{
		ID: uuid.New(), ManagerID: f.manager.ID, InsurerID: uuid.New(), Name: "TRAVEL",
		Calculation: domain.FlatRate{Amount: dec("2500")},
	}
	require.NoError(t, f.store.Products().Create(ctx, &flat))

	p, err := f.policies.CreatePolicy(ctx, f.agent, ports.CreatePolicyRequest{ProductID: flat.ID, ClientName: "Sam"})
	require.NoError(t, err)
	assert.True(t, p.Total.Equal(dec("2900")), "total %s", p.Total)
}

func TestPolicyService_CreatePolicy_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	foreign := domain.Product{
		ID: uuid.New(), ManagerID: uuid.New(), InsurerID: uuid.New(), Name: "MOTOR",
		Calculation: domain.PercentageOfValue{RatePercent: dec("5")},
	}
	require.NoError(t, f.store.Products().Create(ctx, &foreign))

	tests := []struct {
		name string
		req  ports.CreatePolicyRequest
		code string
	}{
		{"blank client name", ports.CreatePolicyRequest{ProductID: f.product.ID, ClientName: "  ", InsuredValue: dec("10")}, apperror.CodeInvalidAmount},
		{"unknown product", ports.CreatePolicyRequest{ProductID: uuid.New(), ClientName: "A", InsuredValue: dec("10")}, apperror.CodeNotFound},
		{"other manager's product", ports.CreatePolicyRequest{ProductID: foreign.ID, ClientName: "A", InsuredValue: dec("10")}, apperror.CodeUnauthorized},
		{"no insured value", ports.CreatePolicyRequest{ProductID: f.product.ID, ClientName: "A"}, apperror.CodeInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.policies.CreatePolicy(ctx, f.agent, tt.req)
			assert.True(t, apperror.HasCode(err, tt.code), "got %v", err)
		})
	}
}

func TestPolicyService_GetPolicy_OwnedByAgent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPolicy(t, "1000")

	got, err := f.policies.GetPolicy(ctx, f.agent, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	stranger := domain.Agent{ID: uuid.New(), ManagerID: f.manager.ID}
	_, err = f.policies.GetPolicy(ctx, stranger, p.ID)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestPolicyService_EffectiveStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.createPolicy(t, "1000")

	_, err := f.settlement.HandlePaymentResult(ctx, domain.PaymentResult{
		PolicyID: p.ID, ResultCode: domain.ResultCodeSuccess, Amount: p.Total, ReceiptID: "RCPT-EFF",
	})
	require.NoError(t, err)

	got, err := f.policies.GetPolicy(ctx, f.agent, p.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PolicyStatusActive, got.Status)

	f.policies.now = func() time.Time { return time.Now().UTC().AddDate(2, 0, 0) }
	list, err := f.policies.ListPolicies(ctx, f.agent)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.PolicyStatusExpired, list[0].Status)
}
