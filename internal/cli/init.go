// Package cli provides common initialization for the ledger binaries.
package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/backend"
	"ledger/internal/config"
	"ledger/internal/files"
	applog "ledger/internal/log"
)

// SetupLogger builds the process logger for component at the configured
// level and installs it as the slog default.
func SetupLogger(component string, cfg *config.Config) *applog.Logger {
	lc := applog.DefaultConfig()
	lc.Component = component
	if cfg != nil {
		if level, err := cfg.SlogLevel(); err == nil {
			lc.Level = level
		}
	}
	logger := applog.New(lc)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitBackend opens the configured repository and optional import queue.
// Exits the process on failure.
func InitBackend(ctx context.Context, logger *applog.Logger, cfg *config.Config) *backend.BackendResult {
	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}

	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).CreateBackend(ctx, bc)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	return result
}

// InitUploads opens the shared upload directory. Exits the process on failure.
func InitUploads(logger *applog.Logger, dir string) *files.LocalStore {
	store, err := files.NewLocalStore(dir)
	if err != nil {
		logger.Error("Failed to initialize upload directory", "error", err, "dir", dir)
		os.Exit(1)
	}
	logger.Debug("Upload directory ready", "dir", store.Dir())
	return store
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *applog.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}

// RunCleanup runs cleanup, logging instead of returning its error. It gives
// up after timeout.
func RunCleanup(logger *applog.Logger, timeout time.Duration, cleanup backend.CleanupFunc) {
	if cleanup == nil {
		return
	}
	done := make(chan error, 1)
	go func() { done <- cleanup() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("Cleanup failed", "error", err)
			return
		}
		logger.Info("Shutdown complete", applog.FieldOperation, applog.OpShutdown)
	case <-time.After(timeout):
		logger.Warn("Shutdown timeout reached", applog.FieldOperation, applog.OpShutdown)
	}
}
