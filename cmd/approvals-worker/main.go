package main

import (
	"context"
	"errors"
	"os"
	"time"

	"approvals/internal/amqp"
	"approvals/internal/cache"
	"approvals/internal/cli"
	"approvals/internal/config"
	applog "approvals/internal/log"
	"approvals/internal/sheets"
	gsheet "approvals/internal/sheets/google"
	"approvals/internal/sheets/memory"
	"approvals/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger(applog.ComponentApp, os.Getenv("LOG_LEVEL"), false)
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(applog.ComponentWorker, cfg.LogLevel, cfg.LogJSON)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	writer, reader, err := newLedger(context.Background(), cfg)
	if err != nil {
		logger.Error("Failed to initialize approval ledger", applog.FieldError, err)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	ledgerWorker := worker.NewLedgerWorker(writer, reader)
	caches := cache.NewManager()
	caches.Register(ledgerWorker.SeenEvents())
	caches.StartCleanup(10 * time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		caches.Stop()
		if err := amqpClient.Close(); err != nil {
			logger.Error("AMQP close error", applog.FieldError, err)
		}
	})

	if err := ledgerWorker.StartupCheck(ctx); err != nil {
		// not fatal: duplicates are still skipped within this run
		logger.Warn("Ledger startup check failed", applog.FieldError, err)
	}

	logger.Info("Starting approvals worker",
		applog.FieldOperation, applog.OpStartup,
		"queue", cfg.AMQPQueue,
		"ledger", ledgerKind(cfg))
	go func() {
		err := amqpClient.ConsumeApprovalChanged(ctx, ledgerWorker.HandleApprovalChanged)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", applog.FieldError, err)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
}

// newLedger returns the Google Sheets ledger when configured and an
// in-memory one otherwise.
func newLedger(ctx context.Context, cfg *config.Config) (sheets.LedgerWriter, sheets.LedgerReader, error) {
	if !cfg.LedgerEnabled() {
		l := memory.New()
		return l, l, nil
	}
	l, err := gsheet.NewLedger(ctx, gsheet.Config{
		SpreadsheetID:      cfg.GoogleSpreadsheetID,
		SheetBase:          cfg.GoogleLedgerSheet,
		ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
		ServiceAccountFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, nil, err
	}
	return l, l, nil
}

func ledgerKind(cfg *config.Config) string {
	if cfg.LedgerEnabled() {
		return "google-sheets"
	}
	return "memory"
}
