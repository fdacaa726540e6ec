package handler

import (
	"sacco-ledger/internal/adapter/http/middleware"
	redisStore "sacco-ledger/internal/adapter/storage/redis"
	"sacco-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	IntakeSvc      ports.IntakeService
	PayoutSvc      ports.PayoutService
	EventQueue     EventQueue
	WalletRepo     ports.WalletRepository
	PaymentRepo    ports.PaymentRepository
	QuarantineRepo ports.QuarantineRepository
	WebhookSecret  string
	Paybill        string
	JWTSecret      string
	JWTIssuer      string
	RateLimitStore *redisStore.RateLimitStore // nil = rate limiting disabled
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	// Rate limit rules
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

	// --- Provider webhooks (no auth; shared secret is advisory only) ---
	webhookHandler := NewWebhookHandler(deps.WebhookSecret, deps.Paybill, deps.EventQueue, deps.IntakeSvc, deps.PayoutSvc, deps.Logger)
	webhooks := r.Group("/webhooks", rl("webhooks"))
	{
		webhooks.POST("/c2b/validation", webhookHandler.C2BValidation)
		webhooks.POST("/c2b/confirmation", webhookHandler.C2BConfirmation)
		webhooks.POST("/stk/callback", webhookHandler.STKCallback)
		webhooks.POST("/b2c/result", webhookHandler.B2CResult)
		webhooks.POST("/b2c/timeout", webhookHandler.B2CTimeout)
	}

	// --- Admin console (JWT-authenticated) ---
	adminAuth := middleware.AdminAuth(deps.JWTSecret, deps.JWTIssuer, deps.Logger)
	adminHandler := NewAdminHandler(deps.IntakeSvc, deps.PayoutSvc, deps.WalletRepo, deps.PaymentRepo, deps.QuarantineRepo, deps.Logger)
	admin := r.Group("/api/v1/admin", adminAuth)
	{
		admin.GET("/payments", rl("admin_read"), adminHandler.ListPayments)
		admin.GET("/payments/:id", rl("admin_read"), adminHandler.GetPayment)
		admin.GET("/payments/:id/raw", rl("admin_read"), adminHandler.GetPaymentRaw)
		admin.POST("/payments/:id/resolve", rl("admin_write"), adminHandler.ResolvePayment)
		admin.GET("/quarantine", rl("admin_read"), adminHandler.ListQuarantine)

		admin.POST("/wallets", rl("admin_write"), adminHandler.CreateWallet)
		admin.GET("/wallets/:id", rl("admin_read"), adminHandler.GetWallet)
		admin.GET("/wallets/:id/entries", rl("admin_read"), adminHandler.ListWalletEntries)
		admin.GET("/saccos/:id/wallets", rl("admin_read"), adminHandler.ListSaccoWallets)

		admin.POST("/batches", rl("admin_write"), adminHandler.BuildBatch)
		admin.GET("/batches/:id", rl("admin_read"), adminHandler.GetBatch)
		admin.POST("/batches/:id/submit", rl("admin_write"), adminHandler.SubmitBatch)
		admin.POST("/items/:id/retry", rl("admin_write"), adminHandler.RetryItem)
		admin.POST("/items/:id/cancel", rl("admin_write"), adminHandler.CancelItem)
	}

	return r
}
