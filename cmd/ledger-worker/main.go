package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/cli"
	applog "ledger/internal/log"
	"ledger/internal/services"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(applog.ComponentWorker, nil))
	logger := cli.SetupLogger(applog.ComponentWorker, cfg)

	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the import worker")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Warn("Worker is not using the sqlite backend, imports will not be visible to the server",
			"backend", cfg.DataBackend)
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	// the worker opens its own consumer client; the backend's is publish-only
	amqpURL := cfg.AMQPURL
	cfg.AMQPURL = ""
	be := cli.InitBackend(ctx, logger, cfg)
	uploads := cli.InitUploads(logger, cfg.UploadDir)

	amqpLogger := logger.WithComponent(applog.ComponentAMQP)
	client, err := amqp.NewClient(amqpURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		amqpLogger.Error("Failed to initialize AMQP client", "error", err)
		cli.RunCleanup(logger, 10*time.Second, be.Cleanup)
		os.Exit(1)
	}

	svc := services.NewLedgerService(be.Repository, uploads)
	w := worker.NewImportWorker(svc, uploads, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		amqpLogger.Info("Starting ledger worker",
			applog.FieldOperation, applog.OpConsume,
			"queue", cfg.AMQPQueue,
			"upload_dir", uploads.Dir())
		return client.ConsumeImports(gctx, w.HandleImportMessage)
	})

	err = g.Wait()
	cli.RunCleanup(logger, 10*time.Second, func() error {
		return errors.Join(client.Close(), be.Cleanup())
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		amqpLogger.Error("Message consumption failed", applog.FieldOperation, applog.OpConsume, "error", err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}
