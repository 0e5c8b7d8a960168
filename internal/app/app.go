// Package app assembles the settlement engine from configuration. Both the
// API server and backofficectl build their object graph here.
package app

import (
	"context"
	"fmt"
	"time"

	"insurance-settlement/config"
	"insurance-settlement/internal/adapter/gateway"
	httpHandler "insurance-settlement/internal/adapter/http/handler"
	"insurance-settlement/internal/adapter/http/middleware"
	"insurance-settlement/internal/adapter/storage/documents"
	"insurance-settlement/internal/adapter/storage/memory"
	pgStorage "insurance-settlement/internal/adapter/storage/postgres"
	redisStorage "insurance-settlement/internal/adapter/storage/redis"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/service"
	"insurance-settlement/pkg/logger"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Repositories is the storage side of the graph.
type Repositories struct {
	Transactor    ports.DBTransactor
	Wallets       ports.WalletRepository
	Ledger        ports.LedgerRepository
	Stock         ports.StockRepository
	Policies      ports.PolicyRepository
	Products      ports.ProductRepository
	Clients       ports.ClientRepository
	Parties       ports.PartyRepository
	Receipts      ports.ReceiptRepository
	Idempotency   ports.IdempotencyRepository
	Notifications ports.NotificationRepository
	Audit         ports.AuditRepository
	Health        ports.HealthChecker
}

// PostgresRepositories binds every repository to one pool.
func PostgresRepositories(pool pgStorage.Pool) Repositories {
	return Repositories{
		Transactor:    pgStorage.NewTransactor(pool),
		Wallets:       pgStorage.NewWalletRepo(pool),
		Ledger:        pgStorage.NewLedgerRepo(pool),
		Stock:         pgStorage.NewStockRepo(pool),
		Policies:      pgStorage.NewPolicyRepo(pool),
		Products:      pgStorage.NewProductRepo(pool),
		Clients:       pgStorage.NewClientRepo(pool),
		Parties:       pgStorage.NewPartyRepo(pool),
		Receipts:      pgStorage.NewReceiptRepo(pool),
		Idempotency:   pgStorage.NewIdempotencyRepo(pool),
		Notifications: pgStorage.NewNotificationRepo(pool),
		Audit:         pgStorage.NewAuditRepo(pool),
		Health:        pgStorage.NewHealthCheck(pool),
	}
}

// MemoryRepositories binds every repository to an in-process store.
func MemoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Transactor:    store,
		Wallets:       store.Wallets(),
		Ledger:        store.Ledger(),
		Stock:         store.Stock(),
		Policies:      store.Policies(),
		Products:      store.Products(),
		Clients:       store.Clients(),
		Parties:       store.Parties(),
		Receipts:      store.Receipts(),
		Idempotency:   store.Idempotency(),
		Notifications: store.Notifications(),
		Audit:         store.Audit(),
		Health:        store,
	}
}

// App holds the wired services.
type App struct {
	Config *config.Config
	Log    zerolog.Logger
	Repos  Repositories

	Policies      ports.PolicyService
	Settlement    ports.SettlementService
	Payouts       ports.PayoutService
	Wallets       ports.WalletService
	Inventory     ports.Inventory
	Notifications ports.NotificationService
	Audit         ports.AuditService
	Tokens        ports.TokenService
	Signatures    ports.SignatureService
	Gateway       *gateway.Simulator
	Sweeper       *service.Sweeper

	rateLimit middleware.RateLimitStore
	health    []ports.HealthChecker
	closers   []func()
}

// New opens storage for cfg.Storage.Driver, connects Redis when enabled and
// wires the services on top.
func New(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log}

	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		a.Repos = MemoryRepositories(memory.New())
		log.Warn().Msg("Using in-memory storage; state is lost on exit")
	default:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.Repos = PostgresRepositories(pool)
	}
	a.health = append(a.health, a.Repos.Health)

	var (
		receiptCache ports.ReceiptCache
		idempCache   ports.IdempotencyCache
	)
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		receiptCache, idempCache = a.withRedis(rdb)
	}

	if err := a.wireServices(receiptCache, idempCache); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) withRedis(rdb *goredis.Client) (ports.ReceiptCache, ports.IdempotencyCache) {
	a.rateLimit = redisStorage.NewRateLimitStore(rdb)
	a.health = append(a.health, redisStorage.NewHealthCheck(rdb))
	return redisStorage.NewReceiptCache(rdb), redisStorage.NewIdempotencyCache(rdb)
}

func (a *App) wireServices(receiptCache ports.ReceiptCache, idempCache ports.IdempotencyCache) error {
	cfg, log, r := a.Config, a.Log, a.Repos

	commission, err := cfg.Settlement.Commission()
	if err != nil {
		return fmt.Errorf("settlement.commission_rate: %w", err)
	}
	taxRate, err := cfg.Settlement.TaxRate()
	if err != nil {
		return fmt.Errorf("settlement.tax_rate_percent: %w", err)
	}
	minimum, err := cfg.Payout.Minimum()
	if err != nil {
		return fmt.Errorf("payout.minimum_amount: %w", err)
	}

	docs, err := documents.NewDiskStore(cfg.Documents.Dir)
	if err != nil {
		return fmt.Errorf("opening document store: %w", err)
	}

	a.Signatures = service.NewHMACSignatureService()
	a.Tokens = service.NewJWTTokenService(cfg.JWT.Secret, cfg.JWT.Expiry, cfg.JWT.Issuer)
	a.Audit = service.NewAuditService(r.Audit, logger.Component(log, "audit"))
	a.Notifications = service.NewNotificationService(r.Notifications, logger.Component(log, "notifications"))
	a.Inventory = service.NewInventoryService(r.Stock, logger.Component(log, "inventory"))
	a.Wallets = service.NewWalletService(r.Wallets, r.Ledger)
	a.Policies = service.NewPolicyService(r.Policies, r.Products, r.Clients, taxRate, logger.Component(log, "policies"))

	ledger := service.NewLedgerService(r.Wallets, r.Ledger, logger.Component(log, "ledger"))
	recon := service.NewReconciliationIndex(r.Ledger, logger.Component(log, "reconciliation"))

	a.Gateway = gateway.NewSimulator(gateway.Config{
		ShortCode:      cfg.Gateway.ShortCode,
		FailurePhone:   cfg.Gateway.FailurePhone,
		SubmitAttempts: cfg.Gateway.SubmitAttempts,
		SubmitBackoff:  cfg.Gateway.SubmitBackoff,
		ResultDelay:    cfg.Gateway.ResultDelay,
	}, logger.Component(log, "gateway"))

	a.Settlement = service.NewSettlementService(
		r.Transactor, r.Policies, r.Products, r.Clients, r.Parties,
		r.Receipts, receiptCache,
		ledger, a.Inventory,
		service.NewTextCertificateRenderer(docs),
		a.Notifications,
		service.SettlementOptions{
			CommissionRate: commission,
			ValidityYears:  cfg.Settlement.PolicyValidityYears,
			RenderAttempts: cfg.Settlement.RenderAttempts,
			RenderBackoff:  cfg.Settlement.RenderBackoff,
		},
		logger.Component(log, "settlement"),
	)

	payouts := service.NewPayoutService(
		r.Transactor, r.Ledger, r.Wallets, r.Parties,
		r.Idempotency, idempCache,
		ledger, recon, a.Gateway, a.Notifications,
		service.PayoutOptions{
			MinimumAmount:     minimum,
			ProcessingTimeout: cfg.Payout.ProcessingTimeout,
			SweepBatchSize:    cfg.Settlement.SweepBatchSize,
		},
		logger.Component(log, "payouts"),
	)
	a.Payouts = payouts
	// Simulated results go straight into the payout state machine, the same
	// path a signed gateway callback takes.
	a.Gateway.SetResultSink(payouts.HandlePayoutResult)

	a.Sweeper = service.NewSweeper(a.Payouts, a.Settlement, cfg.Settlement.SweepInterval, cfg.Settlement.SweepBatchSize, logger.Component(log, "sweeper"))
	return nil
}

// Router builds the HTTP handler tree.
func (a *App) Router() *gin.Engine {
	return httpHandler.SetupRouter(httpHandler.RouterDeps{
		PolicySvc:       a.Policies,
		SettlementSvc:   a.Settlement,
		PayoutSvc:       a.Payouts,
		WalletSvc:       a.Wallets,
		Inventory:       a.Inventory,
		NotificationSvc: a.Notifications,
		SigSvc:          a.Signatures,
		TokenSvc:        a.Tokens,
		Parties:         a.Repos.Parties,
		CallbackSecret:  a.Config.Callback.Secret,
		CallbackDrift:   a.Config.Callback.MaxDrift,
		RateLimitStore:  a.rateLimit,
		HealthCheckers:  a.health,
		AuditSvc:        a.Audit,
		Logger:          a.Log,
	})
}

// Close waits for in-flight simulated payout results, then releases
// connections in reverse order of acquisition.
func (a *App) Close() {
	if a.Gateway != nil {
		done := make(chan struct{})
		go func() {
			a.Gateway.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			a.Log.Warn().Msg("Gave up waiting for simulated payout results")
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
