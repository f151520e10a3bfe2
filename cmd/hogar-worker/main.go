package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"hogar/internal/backend"
	"hogar/internal/config"
	"hogar/internal/core"
	"hogar/internal/events"
	"hogar/internal/log"
	"hogar/internal/notifications"
	"hogar/internal/scheduler"
	"hogar/internal/statements"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := log.New(log.DefaultConfig()).WithComponent(log.ComponentWorker)
	log.SetDefault(logger)

	logger.Info("Starting hogar-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateStore(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize store", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if result.Cleanup != nil {
		defer func() {
			if err := result.Cleanup(); err != nil {
				logger.Error("Store cleanup failed", "error", err)
			}
		}()
	}

	var eventsClient *events.Client
	if cfg.AMQPURL != "" {
		eventsClient, err = events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			defer eventsClient.Close()
			logger.Info("Initialized AMQP client", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	clock := core.SystemClock{}
	manager := statements.NewManager(result.Store, clock, core.UUIDGenerator{})
	generator := notifications.NewGeneratorWithOptions(result.Store, clock, notifications.Options{
		DaysAhead:     cfg.DueSoonDays,
		ClosingWindow: cfg.ClosingWindowDays,
		WarnUsage:     cfg.WarnUsageRatio,
		CritUsage:     cfg.CritUsageRatio,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sweepJob := scheduler.JobFunc{
		JobName: "statement-sweep",
		Fn: func(ctx context.Context) error {
			res, err := manager.ProcessAutomaticClosings(ctx)
			if err != nil {
				return err
			}
			if res.Closed > 0 {
				event := events.NewChangeEvent(events.EventStatementClosed, "sweep")
				event.AmountCents = int64(res.Closed)
				if err := eventsClient.Publish(ctx, event); err != nil {
					logger.Warn("Failed to publish sweep event", "error", err)
				}
			}
			if len(res.Errors) > 0 {
				return fmt.Errorf("sweep closed %d statements with %d failures", res.Closed, len(res.Errors))
			}
			return nil
		},
	}

	notifyJob := scheduler.JobFunc{
		JobName: "notification-scan",
		Fn: func(ctx context.Context) error {
			all, err := generator.GetAllCreditCardNotifications(ctx, "")
			if err != nil {
				return err
			}
			for _, n := range all {
				logger.Info("Credit card alert",
					"type", string(n.Type),
					"priority", string(n.Priority),
					"owner", n.Owner,
					"wallet_id", n.WalletID,
					"amount_cents", n.AmountCents,
					"message", n.Message)
			}
			logger.Info("Notification scan complete", "count", len(all))
			return nil
		},
	}

	sched := scheduler.New(ctx, logger)
	if err := sched.AddJob(cfg.SweepSchedule, sweepJob); err != nil {
		logger.Error("Failed to register sweep job", "error", err)
		os.Exit(1)
	}
	if err := sched.AddJob(cfg.NotificationSchedule, notifyJob); err != nil {
		logger.Error("Failed to register notification job", "error", err)
		os.Exit(1)
	}

	// Catch up on anything missed while the worker was down.
	if err := sched.RunNow(sweepJob); err != nil {
		logger.Error("Startup sweep failed", "error", err)
	}

	sched.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	cancel()

	done := make(chan struct{})
	go func() {
		sched.Stop()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Worker shutdown complete")
	case <-time.After(30 * time.Second):
		logger.Warn("Shutdown timeout reached")
	}
}
