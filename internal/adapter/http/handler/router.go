package handler

import (
	"time"

	"insurance-settlement/internal/adapter/http/middleware"
	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	PolicySvc       ports.PolicyService
	SettlementSvc   ports.SettlementService
	PayoutSvc       ports.PayoutService
	WalletSvc       ports.WalletService
	Inventory       ports.Inventory
	NotificationSvc ports.NotificationService
	SigSvc          ports.SignatureService
	TokenSvc        ports.TokenService
	Parties         ports.PartyRepository
	CallbackSecret  string
	CallbackDrift   time.Duration
	RateLimitStore  middleware.RateLimitStore // nil = rate limiting disabled
	HealthCheckers  []ports.HealthChecker
	AuditSvc        ports.AuditService // nil = audit logging disabled
	Logger          zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(metrics.Middleware())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	if deps.AuditSvc != nil {
		r.Use(middleware.AuditLog(deps.AuditSvc))
	}

	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", metrics.Handler())

	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	rules := middleware.DefaultRateLimitRules()
	rl := func(group string) gin.HandlerFunc {
		if deps.RateLimitStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.RateLimiter(deps.RateLimitStore, group, rule, deps.Logger)
	}

	v1 := r.Group("/api/v1")

	// --- Gateway callbacks (HMAC-signed) ---
	callbackHandler := NewCallbackHandler(deps.SettlementSvc, deps.PayoutSvc, deps.Logger)
	callbacks := v1.Group("/callbacks",
		rl("callbacks"),
		middleware.CallbackSignature(deps.CallbackSecret, deps.SigSvc, deps.CallbackDrift, deps.Logger))
	{
		callbacks.POST("/payments", callbackHandler.PaymentResult)
		callbacks.POST("/payouts/result", callbackHandler.PayoutResult)
		callbacks.POST("/payouts/timeout", callbackHandler.PayoutTimeout)
	}

	// --- Actor routes (JWT) ---
	auth := middleware.ActorAuth(deps.TokenSvc, deps.Parties, deps.Logger)
	policyHandler := NewPolicyHandler(deps.PolicySvc)
	walletHandler := NewWalletHandler(deps.WalletSvc)
	withdrawalHandler := NewWithdrawalHandler(deps.PayoutSvc)
	stockHandler := NewStockHandler(deps.Inventory)
	notificationHandler := NewNotificationHandler(deps.NotificationSvc)

	agent := v1.Group("/agent", auth, middleware.RequireRole(domain.RoleAgent))
	{
		agent.POST("/policies", rl("policies"), policyHandler.Create)
		agent.GET("/policies", rl("read"), policyHandler.List)
		agent.GET("/policies/:id", rl("read"), policyHandler.Get)
		agent.GET("/wallet", rl("read"), walletHandler.GetWallet)
		agent.GET("/wallet/entries", rl("read"), walletHandler.ListEntries)
		agent.GET("/wallet/stats", rl("read"), walletHandler.GetStats)
		agent.POST("/withdrawals", rl("withdrawals"), withdrawalHandler.Request)
	}

	manager := v1.Group("/manager", auth, middleware.RequireRole(domain.RoleManager))
	{
		manager.GET("/wallet", rl("read"), walletHandler.GetWallet)
		manager.GET("/wallet/entries", rl("read"), walletHandler.ListEntries)
		manager.GET("/wallet/stats", rl("read"), walletHandler.GetStats)
		manager.GET("/withdrawals/pending", rl("read"), withdrawalHandler.ListPending)
		manager.POST("/withdrawals/:id/approve", rl("manager"), withdrawalHandler.Approve)
		manager.GET("/stock", rl("read"), stockHandler.List)
	}

	admin := v1.Group("/admin", auth, middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/stock", rl("admin"), stockHandler.Replenish)
	}

	v1.GET("/notifications", auth, rl("read"), notificationHandler.List)

	return r
}
