package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sacco-ledger/config"
	httpHandler "sacco-ledger/internal/adapter/http/handler"
	"sacco-ledger/internal/adapter/provider"
	pgStorage "sacco-ledger/internal/adapter/storage/postgres"
	redisStorage "sacco-ledger/internal/adapter/storage/redis"
	"sacco-ledger/internal/core/ports"
	"sacco-ledger/internal/service"
	"sacco-ledger/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Msg("Starting SACCO Ledger")

	ctx := context.Background()

	// Initialize PostgreSQL pool
	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	// Initialize Redis client
	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Initialize repositories
	walletRepo := pgStorage.NewWalletRepo(pool)
	paymentRepo := pgStorage.NewPaymentRepo(pool)
	quarantineRepo := pgStorage.NewQuarantineRepo(pool)
	idempotencyRepo := pgStorage.NewIdempotencyRepo(pool)
	payoutRepo := pgStorage.NewPayoutRepo(pool)
	auditRepo := pgStorage.NewAuditRepository(pool)
	transactor := pgStorage.NewTransactor(pool)

	// Initialize Redis stores
	replayMarker := redisStorage.NewReplayMarker(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb)

	// Initialize services
	auditSvc := service.NewAuditService(auditRepo, log)
	alerter := service.NewLogAlerter(log)
	riskSvc := service.NewRiskService(paymentRepo, log)

	intakeSvc := service.NewIntakeService(
		service.IntakeConfig{Paybill: cfg.Intake.Paybill},
		transactor,
		paymentRepo,
		walletRepo,
		quarantineRepo,
		idempotencyRepo,
		replayMarker,
		riskSvc,
		auditSvc,
		log,
	)

	b2cClient := provider.NewClient(provider.Config{
		BaseURL:    cfg.Provider.BaseURL,
		APIKey:     cfg.Provider.APIKey,
		ResultURL:  cfg.Provider.ResultURL,
		TimeoutURL: cfg.Provider.TimeoutURL,
	}, &http.Client{Timeout: cfg.Provider.HTTPTimeout}, log)

	payoutSvc := service.NewPayoutService(
		service.PayoutConfig{
			StuckThreshold: cfg.Payout.StuckThreshold,
			MaxAttempts:    cfg.Payout.MaxAttempts,
		},
		transactor,
		payoutRepo,
		walletRepo,
		idempotencyRepo,
		b2cClient,
		alerter,
		auditSvc,
		log,
	)

	// Intake worker pool: webhook handlers ack first, workers process.
	dispatcher := service.NewDispatcher(intakeSvc, cfg.Intake.Workers, cfg.Intake.QueueSize, log)
	dispatcher.Start()

	// Payout background loops: stuck sweeps and due retries.
	sweepCtx, stopSweeps := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(cfg.Payout.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if err := payoutSvc.SweepStuck(sweepCtx); err != nil {
					log.Error().Err(err).Msg("stuck payout sweep failed")
				}
				if err := payoutSvc.RetryDue(sweepCtx); err != nil {
					log.Error().Err(err).Msg("payout retry pass failed")
				}
			}
		}
	}()

	// Initialize health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	// Setup Gin router with all routes
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		IntakeSvc:      intakeSvc,
		PayoutSvc:      payoutSvc,
		EventQueue:     dispatcher,
		WalletRepo:     walletRepo,
		PaymentRepo:    paymentRepo,
		QuarantineRepo: quarantineRepo,
		WebhookSecret:  cfg.Intake.WebhookSecret,
		Paybill:        cfg.Intake.Paybill,
		JWTSecret:      cfg.Admin.JWTSecret,
		JWTIssuer:      cfg.Admin.JWTIssuer,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop accepting new work, then drain the intake queue.
	stopSweeps()
	dispatcher.Stop()

	log.Info().Msg("Server exited")
}
