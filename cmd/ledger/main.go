package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/cli"
	apphttp "ledger/internal/http"
	applog "ledger/internal/log"
	"ledger/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(cli.SetupLogger(applog.ComponentApp, nil))
	logger := cli.SetupLogger(applog.ComponentApp, cfg)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	be := cli.InitBackend(ctx, logger, cfg)
	uploads := cli.InitUploads(logger, cfg.UploadDir)
	svc := services.NewLedgerService(be.Repository, uploads)

	opts := apphttp.Options{
		MaxUploadBytes:    cfg.MaxUploadBytes,
		Ready:             be.Ready,
		Logger:            logger,
		RequestsPerMinute: 60,
	}
	if be.Queue != nil {
		opts.Queue = be.Queue
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, uploads, opts)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 60 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"queued_imports", be.Queue != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := g.Wait()
	cli.RunCleanup(logger, 10*time.Second, be.Cleanup)
	if err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
