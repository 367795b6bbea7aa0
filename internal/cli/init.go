// Package cli holds the startup steps shared by cmd/kakeibo,
// cmd/kakeibo-worker and cmd/kakeiboctl, and the terminal rendering of
// kakeiboctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kakeibo/internal/backend"
	"kakeibo/internal/config"
	"kakeibo/internal/log"
	"kakeibo/internal/services"
)

// LoadConfig reads .env for local development, then the environment.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadEnvFile(".env"); err != nil {
		return nil, err
	}
	return config.Load(), nil
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Component: component,
		Output:    os.Stderr,
	})
	log.SetDefault(logger)
	return logger
}

// Ledger is an opened backend with the ledger service on top of it.
type Ledger struct {
	Service *services.LedgerService
	Backend *backend.Backend
}

// OpenLedger opens the configured backend and the household it serves.
// observer may be nil.
func OpenLedger(ctx context.Context, cfg *config.Config, logger *log.Logger, observer services.Observer) (*Ledger, error) {
	household, err := cfg.Household()
	if err != nil {
		return nil, err
	}
	if err := household.Validate(); err != nil {
		return nil, fmt.Errorf("household: %w", err)
	}
	b, err := backend.NewFactory(logger).Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	svc := services.NewLedgerService(b.Store, household, services.Options{
		LedgerSheet:   cfg.LedgerSheet,
		ShoppingSheet: cfg.ShoppingSheet,
		Logger:        logger,
		Observer:      observer,
	})
	return &Ledger{Service: svc, Backend: b}, nil
}

// Close runs the backend cleanup with a bounded timeout.
func (l *Ledger) Close(logger *log.Logger) {
	if l.Backend.Cleanup == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := l.Backend.Cleanup(ctx); err != nil {
		logger.Error("Backend cleanup failed", log.FieldError, err, log.FieldOperation, log.OpShutdown)
	}
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM. Once
// the signal arrives, cleanup runs with timeout and done is closed.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}
