package service

import (
	"context"
	"testing"
	"time"

	"insurance-settlement/internal/adapter/gateway"
	"insurance-settlement/internal/adapter/storage/documents"
	"insurance-settlement/internal/adapter/storage/memory"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

const failurePhone = "0700000000"

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fixture is a fully wired engine on the memory store: one manager, one
// agent, one percentage product and its certificate stock.
type fixture struct {
	store   *memory.Store
	docs    *documents.Store
	manager domain.Manager
	agent   domain.Agent
	product domain.Product

	ledger     *LedgerServiceImpl
	inventory  ports.Inventory
	notifier   ports.NotificationService
	policies   *PolicyServiceImpl
	settlement *SettlementServiceImpl
	payouts    *PayoutServiceImpl
	wallets    ports.WalletService
	gateway    *gateway.Simulator
}

type fixtureOption func(*fixtureConfig)

type fixtureConfig struct {
	renderer   ports.CertificateRenderer
	payoutGate ports.PaymentGateway
	agentPhone string
	stock      int
}

func withRenderer(r ports.CertificateRenderer) fixtureOption {
	return func(c *fixtureConfig) { c.renderer = r }
}

func withGateway(g ports.PaymentGateway) fixtureOption {
	return func(c *fixtureConfig) { c.payoutGate = g }
}

func withAgentPhone(phone string) fixtureOption {
	return func(c *fixtureConfig) { c.agentPhone = phone }
}

func withStock(n int) fixtureOption {
	return func(c *fixtureConfig) { c.stock = n }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	cfg := fixtureConfig{agentPhone: "0712345678", stock: 10}
	for _, o := range opts {
		o(&cfg)
	}

	ctx := context.Background()
	log := zerolog.Nop()
	store := memory.New()
	docs, err := documents.New(afero.NewMemMapFs(), "/certs")
	require.NoError(t, err)

	f := &fixture{store: store, docs: docs}
	now := time.Now().UTC()
	f.manager = domain.Manager{ID: uuid.New(), FullName: "Mary Manager", Phone: "0722000000", CreatedAt: now}
	f.agent = domain.Agent{ID: uuid.New(), ManagerID: f.manager.ID, FullName: "Alex Agent", PayoutPhone: cfg.agentPhone, CreatedAt: now}
	f.product = domain.Product{
		ID:          uuid.New(),
		ManagerID:   f.manager.ID,
		InsurerID:   uuid.New(),
		Name:        "MOTOR",
		Calculation: domain.PercentageOfValue{RatePercent: dec("5")},
		CreatedAt:   now,
	}
	require.NoError(t, store.Parties().CreateManager(ctx, &f.manager))
	require.NoError(t, store.Parties().CreateAgent(ctx, &f.agent))
	require.NoError(t, store.Products().Create(ctx, &f.product))
	for _, owner := range []uuid.UUID{f.manager.ID, f.agent.ID} {
		require.NoError(t, store.Wallets().Create(ctx, &domain.Wallet{
			ID: uuid.New(), OwnerID: owner, Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now,
		}))
	}
	if cfg.stock > 0 {
		_, err := store.Stock().Replenish(ctx, f.product.StockKey(), cfg.stock)
		require.NoError(t, err)
	}

	f.ledger = NewLedgerService(store.Wallets(), store.Ledger(), log)
	f.inventory = NewInventoryService(store.Stock(), log)
	f.notifier = NewNotificationService(store.Notifications(), log)
	f.policies = NewPolicyService(store.Policies(), store.Products(), store.Clients(), dec("16"), log)

	renderer := cfg.renderer
	if renderer == nil {
		renderer = NewTextCertificateRenderer(docs)
	}
	f.settlement = NewSettlementService(
		store, store.Policies(), store.Products(), store.Clients(), store.Parties(),
		store.Receipts(), nil, f.ledger, f.inventory, renderer, f.notifier,
		SettlementOptions{CommissionRate: dec("0.10"), ValidityYears: 1, RenderAttempts: 2, RenderBackoff: time.Millisecond},
		log,
	)

	f.gateway = gateway.NewSimulator(gateway.Config{FailurePhone: failurePhone, SubmitAttempts: 1}, log)
	payoutGate := cfg.payoutGate
	if payoutGate == nil {
		payoutGate = f.gateway
	}
	f.payouts = NewPayoutService(
		store, store.Ledger(), store.Wallets(), store.Parties(), store.Idempotency(), nil,
		f.ledger, NewReconciliationIndex(store.Ledger(), log), payoutGate, f.notifier,
		PayoutOptions{MinimumAmount: dec("1.00"), ProcessingTimeout: 30 * time.Minute, SweepBatchSize: 50, AssociateAttempts: 1},
		log,
	)
	f.wallets = NewWalletService(store.Wallets(), store.Ledger())
	return f
}

// createPolicy sells a policy with the given insured value.
func (f *fixture) createPolicy(t *testing.T, insuredValue string) *domain.Policy {
	t.Helper()
	p, err := f.policies.CreatePolicy(context.Background(), f.agent, ports.CreatePolicyRequest{
		ProductID:    f.product.ID,
		ClientName:   "Jane Doe",
		ClientPhone:  "0799000000",
		InsuredValue: dec(insuredValue),
	})
	require.NoError(t, err)
	return p
}

// fund credits the agent's wallet directly.
func (f *fixture) fund(t *testing.T, amount string) {
	t.Helper()
	ctx := context.Background()
	tx, err := f.store.Begin(ctx)
	require.NoError(t, err)
	_, err = f.ledger.Credit(ctx, tx, f.agent.ID, dec(amount), domain.EntryKindCommissionEarned, nil)
	require.NoError(t, err)
	require.NoError(t, tx.Commit(ctx))
}

func (f *fixture) balance(t *testing.T, owner uuid.UUID) decimal.Decimal {
	t.Helper()
	w, err := f.wallets.GetWallet(context.Background(), owner)
	require.NoError(t, err)
	return w.Balance
}

func (f *fixture) stockLeft(t *testing.T) int {
	t.Helper()
	row, err := f.store.Stock().Get(context.Background(), f.product.StockKey())
	require.NoError(t, err)
	if row == nil {
		return -1
	}
	return row.Quantity
}

func (f *fixture) events(t *testing.T, recipient uuid.UUID) []domain.NotificationEvent {
	t.Helper()
	list, err := f.notifier.List(context.Background(), recipient, 100)
	require.NoError(t, err)
	out := make([]domain.NotificationEvent, 0, len(list))
	for _, n := range list {
		out = append(out, n.Event)
	}
	return out
}

func (f *fixture) entry(t *testing.T, id uuid.UUID) *domain.LedgerEntry {
	t.Helper()
	e, err := f.store.Ledger().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, e)
	return e
}
