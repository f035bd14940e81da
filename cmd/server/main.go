// Package main is the entry point for the shopledger API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"shopledger/internal/config"
	"shopledger/internal/domain/activity"
	"shopledger/internal/domain/auth"
	"shopledger/internal/domain/credit"
	"shopledger/internal/domain/customer"
	"shopledger/internal/domain/notification"
	"shopledger/internal/domain/reports"
	v1 "shopledger/internal/infrastructure/http/v1"
	"shopledger/internal/infrastructure/http/v1/middleware"
	"shopledger/internal/infrastructure/storage/postgres"
	"shopledger/internal/infrastructure/storage/postgres/auth_repo"
	"shopledger/internal/infrastructure/storage/postgres/catalog_repo"
	"shopledger/internal/infrastructure/storage/postgres/document_repo"
	"shopledger/internal/infrastructure/storage/postgres/report_repo"
	"shopledger/pkg/logger"
	"shopledger/pkg/numerator"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load(configFiles()...)
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log)

	log.Infow("starting shopledger server", "version", version, "env", cfg.Env)

	// --- Database ---
	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns
	poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolCfg.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	// --- Side effects ---
	activityStore, err := postgres.NewActivityStore(txm)
	if err != nil {
		log.Fatalw("failed to create activity store", "error", err)
	}
	recorder := activity.NewRecorder(activityStore)
	notifier := notification.NewNotifier(postgres.NewOutboxPublisher(txm))

	numbers := numerator.New(func(ctx context.Context) numerator.Querier {
		return txm.GetQuerier(ctx)
	}, nil)

	// --- Repositories ---
	customerRepo := catalog_repo.NewCustomerRepo(txm)
	orderRepo := document_repo.NewCreditOrderRepo(txm)
	paymentRepo := document_repo.NewPaymentRepo(txm)

	// --- Services ---
	jwtConfig := auth.DefaultJWTConfig(cfg.JWT.Secret)
	jwtConfig.Issuer = cfg.JWT.Issuer
	jwtConfig.AccessTokenTTL = cfg.JWT.TTL
	jwtService := auth.NewJWTService(jwtConfig)

	authService := auth.NewService(auth_repo.NewUserRepo(txm), txm, jwtService, recorder, auth.DefaultServiceConfig())
	customerService := customer.NewService(customerRepo, txm, numbers, recorder)

	orderService := credit.NewOrderService(txm, customerRepo, orderRepo, numbers, recorder, notifier)
	orderService.SetDefaultTerm(cfg.Credit.DefaultTermDays)

	reconciler := credit.NewReconciler(credit.ReconcilerConfig{
		TxManager: txm,
		Customers: customerRepo,
		Orders:    orderRepo,
		Payments:  paymentRepo,
		Activity:  recorder,
		Notifier:  notifier,
	})

	var idempotency middleware.IdempotencyStore
	if cfg.Idempotency.Enabled {
		idempotency = postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL)
	}

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Logger:       log,
		JWTValidator: jwtService,
		DB:           pool,
		Version:      version,
		Auth:         authService,
		Customers:    customerService,
		Orders:       orderService,
		Ledger:       reconciler,
		Reports:      reports.NewService(report_repo.NewReportRepo(txm)),
		Activity:     activity.NewService(activityStore),
		Idempotency:  idempotency,
		Debug:        cfg.IsDevelopment(),
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      otelhttp.NewHandler(router, "shopledger-api"),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infow("server starting", "addr", cfg.HTTP.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		log.Errorw("server failed", "error", err)
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}

// configFiles returns the file named by SHOPLEDGER_CONFIG_FILE, or none to
// let config.Load try its defaults.
func configFiles() []string {
	if f := os.Getenv("SHOPLEDGER_CONFIG_FILE"); f != "" {
		return []string{f}
	}
	return nil
}
