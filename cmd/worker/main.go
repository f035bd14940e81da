// Package main is the entry point for the shopledger background worker.
// It relays outbox notifications, queues overdue reminders and prunes old rows.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"shopledger/internal/config"
	"shopledger/internal/domain/credit"
	"shopledger/internal/domain/notification"
	"shopledger/internal/infrastructure/notify"
	"shopledger/internal/infrastructure/storage/postgres"
	"shopledger/internal/infrastructure/storage/postgres/catalog_repo"
	"shopledger/internal/infrastructure/storage/postgres/document_repo"
	"shopledger/pkg/logger"
)

func main() {
	files := []string(nil)
	if f := os.Getenv("SHOPLEDGER_CONFIG_FILE"); f != "" {
		files = append(files, f)
	}
	cfg, err := config.Load(files...)
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

	log.Info("starting shopledger worker")

	poolCfg := postgres.DefaultPoolConfig(cfg.Database.DSN)
	poolCfg.ApplicationName = "shopledger-worker"
	poolCfg.MaxConns = cfg.Database.MaxConns
	poolCfg.MinConns = cfg.Database.MinConns

	pool, err := postgres.NewPool(ctx, poolCfg)
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()

	txm := postgres.NewTxManager(pool)

	var dispatcher notification.Dispatcher = notify.LogDispatcher{}
	if cfg.Notifications.WebhookURL != "" {
		dispatcher = notify.NewWebhookDispatcher(notify.WebhookConfig{
			URL:     cfg.Notifications.WebhookURL,
			Secret:  cfg.Notifications.WebhookSecret,
			Timeout: cfg.Notifications.Timeout,
			Retries: cfg.Notifications.Retries,
		})
		log.Infow("delivering notifications to webhook", "url", cfg.Notifications.WebhookURL)
	}

	relayCfg := postgres.DefaultRelayConfig()
	relayCfg.BatchSize = cfg.Worker.OutboxBatchSize
	relayCfg.MaxRetries = cfg.Worker.OutboxMaxRetries
	relay := postgres.NewOutboxRelay(txm, dispatcher, relayCfg)

	activityStore, err := postgres.NewActivityStore(txm)
	if err != nil {
		log.Fatalw("failed to create activity store", "error", err)
	}

	// Reminders only read orders and publish to the outbox; no activity is recorded.
	orders := credit.NewOrderService(
		txm,
		catalog_repo.NewCustomerRepo(txm),
		document_repo.NewCreditOrderRepo(txm),
		nil,
		nil,
		notification.NewNotifier(postgres.NewOutboxPublisher(txm)),
	)

	w := NewWorker(Jobs{
		Outbox:      relay,
		Reminders:   orders,
		Activity:    activityStore,
		Idempotency: postgres.NewIdempotencyStore(txm, cfg.Idempotency.TTL),
	}, cfg.Worker, log)

	if err := w.Run(ctx); err != nil {
		log.Errorw("worker stopped with error", "error", err)
		os.Exit(1)
	}
	log.Info("worker stopped")
}
