package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"mandir/internal/cli"
	applog "mandir/internal/log"
	"mandir/internal/services"
	"mandir/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting mandir-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.DataBackend != "sqlite" {
		logger.Error("mandir-worker needs the sqlite backend shared with the server", "backend", cfg.DataBackend)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("mandir-worker needs AMQP_URL")
		os.Exit(1)
	}
	if !cfg.SheetsEnabled() {
		logger.Error("mandir-worker needs GOOGLE_SPREADSHEET_ID")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	}()
	if res.AMQP == nil {
		logger.Error("AMQP client unavailable, cannot consume sync messages")
		return
	}

	processorCfg := services.DefaultSyncProcessorConfig()
	processorCfg.BatchSize = cfg.SyncBatchSize
	processorCfg.PollInterval = cfg.SyncInterval
	processor := services.NewSyncProcessor(res.Store, res.Exporter, processorCfg)
	syncWorker := worker.NewSyncWorker(processor, cfg.SyncBatchSize)

	ctx, _ := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Bookings stored while the worker was down never got a message.
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return res.AMQP.ConsumeBookingSync(gctx, syncWorker.HandleSyncMessage)
	})
	g.Go(func() error {
		ticker := time.NewTicker(cfg.SyncInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := syncWorker.ProcessPendingBookings(gctx); err != nil {
					logger.Error("Periodic sync failed", applog.FieldError, err)
				}
			}
		}
	})

	logger.Info("Worker running",
		"queue", cfg.AMQPQueue,
		"sync_interval", cfg.SyncInterval,
		"batch_size", cfg.SyncBatchSize)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", applog.FieldError, err)
		return
	}
	logger.Info("Worker shutdown complete")
}
