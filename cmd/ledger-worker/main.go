package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"ledger/internal/amqp"
	"ledger/internal/config"
	"ledger/internal/log"
	"ledger/internal/storage"
	"ledger/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	logger := log.New(log.ConfigFor(cfg.AppEnv, cfg.LogLevel))
	log.SetDefault(logger)

	logger.Info("Starting ledger-worker")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}
	if !cfg.EventsEnabled() {
		logger.Error("AMQP_URL is required to run the event worker")
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.DatabaseURL)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", log.FieldError, err, "path", cfg.DatabaseURL)
		os.Exit(1)
	}
	defer repo.Close()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()
	client.SetPrefetch(cfg.AMQPPrefetch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	eventWorker := worker.NewEventWorker(repo, logger)

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := client.ConsumeWithReconnect(ctx, func(ev *amqp.TransactionEvent) error {
			return eventWorker.HandleEvent(ctx, ev)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", log.FieldError, err)
		}
		cancel()
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	logger.Info("Shutting down worker...")
	cancel()

	select {
	case <-done:
		logger.Info("Worker shutdown complete", "stats", eventWorker.Stats())
	case <-time.After(cfg.ShutdownTimeout):
		logger.Warn("Shutdown timeout reached")
	}
}
