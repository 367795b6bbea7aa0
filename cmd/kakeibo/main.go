package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"kakeibo/internal/cli"
	apphttp "kakeibo/internal/http"
	"kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
)

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.Discard().Error("Failed to load .env", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	metrics := apphttp.NewMetrics()
	ledger, err := cli.OpenLedger(context.Background(), cfg, logger, metrics)
	if err != nil {
		logger.Error("Failed to open backend", log.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	if ledger.Backend.CacheStats != nil {
		metrics.WatchCache(ledger.Backend.CacheStats)
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Ledger:    ledger.Service,
		Ready:     ledger.Backend.Ready,
		Logger:    logger,
		Metrics:   metrics,
		RateLimit: ratelimit.Config{RequestsPerMinute: cfg.APIRequestsPerMin},
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		ledger.Close(logger)
	})

	if ledger.Backend.Start != nil {
		if err := ledger.Backend.Start(ctx); err != nil {
			logger.Error("Failed to start background replication", log.FieldError, err)
			os.Exit(1)
		}
	}

	logger.Info("Starting kakeibo server", "port", cfg.Port, "backend", cfg.DataBackend)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		ledger.Close(logger)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
