package main

import (
	"context"
	"errors"
	"os"
	"time"

	"kakeibo/internal/amqp"
	"kakeibo/internal/backend"
	"kakeibo/internal/cli"
	"kakeibo/internal/log"
	"kakeibo/internal/worker"
)

func main() {
	cfg, err := cli.LoadConfig()
	if err != nil {
		log.Discard().Error("Failed to load .env", log.FieldError, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting kakeibo-worker")

	if err := cfg.ValidateReplica(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	sheetsClient, err := backend.OpenGoogle(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer amqpClient.Close()

	syncWorker := worker.NewSyncWorker(sheetsClient, logger)
	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	err = amqpClient.ConsumeMutations(ctx, syncWorker.HandleSyncMessage)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", log.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker stopped", "applied", syncWorker.Applied())
}
