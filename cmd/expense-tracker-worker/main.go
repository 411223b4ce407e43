package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"expense-tracker/internal/amqp"
	"expense-tracker/internal/backend"
	"expense-tracker/internal/cli"
	"expense-tracker/internal/log"
	"expense-tracker/internal/worker"
)

func main() {
	// Load .env file for local development
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig(nil)
	if err != nil {
		cli.SetupLogger(slog.LevelInfo, os.Stderr).Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg.SlogLevel(), os.Stderr).WithComponent(log.ComponentWorker)
	logger.Info("Starting expense-tracker-worker", log.FieldOperation, log.OpStartup)

	if cfg.AMQPURL == "" || !cfg.SheetsEnabled() {
		logger.Error("The sync worker needs AMQP_URL and GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	backendConfig, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	// The worker only reads the ledger; it never publishes.
	backendConfig.AMQPURL = ""

	ctx, stop := cli.NotifyInterrupt(context.Background())
	defer stop()

	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)
	stores, err := factory.CreateBackend(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to open ledger backend", "error", err, "backend", backendConfig.Type)
		os.Exit(1)
	}
	defer stores.Close()

	exporter, err := factory.CreateSheetsExporter(ctx, backendConfig)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	consumer, err := amqp.NewConsumer(cfg.AMQPURL, amqp.ConsumerOptions{
		Exchange:   cfg.AMQPExchange,
		RoutingKey: cfg.AMQPRoutingKey,
		Queue:      cfg.AMQPQueue,
	})
	if err != nil {
		logger.Error("Failed to initialize AMQP consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	syncWorker := worker.NewSyncWorker(stores.Ledger, exporter, true)

	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		// Don't exit - events and the periodic resync will retry
		logger.Error("Failed startup sync check", "error", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	consumed := make(chan struct{})
	go func() {
		defer close(consumed)
		if err := consumer.Consume(ctx, syncWorker.HandleEvent); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()
	go syncWorker.RunPeriodic(ctx, cfg.SyncInterval)

	<-ctx.Done()
	logger.Info("Shutting down worker...", log.FieldOperation, log.OpShutdown)

	// Give an in-flight export time to finish
	select {
	case <-consumed:
		logger.Info("Worker shutdown complete", "last_sync", syncWorker.LastSync())
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
