package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"verkoop/internal/amqp"
	"verkoop/internal/cli"
	"verkoop/internal/config"
	"verkoop/internal/log"
	"verkoop/internal/services"
	"verkoop/internal/worker"
)

const (
	// minRefreshGap drops refresh requests that arrive right after an import.
	minRefreshGap = 30 * time.Second
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting verkoop-worker")

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	importer, src, store, err := cli.NewImporter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer src.Close()
	defer store.Close()

	refreshWorker := worker.NewRefreshWorker(importer, minRefreshGap)

	// The snapshot may be stale after downtime; failures here are logged and
	// retried on the next tick.
	if err := refreshWorker.StartupImport(ctx, cfg.RefreshInterval); err != nil {
		logger.Error("Startup import failed", log.FieldError, err)
	}

	processor := services.NewRefreshProcessor(importer, services.RefreshProcessorConfig{
		Interval:   cfg.RefreshInterval,
		RunOnStart: false,
	})

	g, gctx := errgroup.WithContext(ctx)
	if err := processor.Start(gctx); err != nil {
		return err
	}

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer client.Close()

		g.Go(func() error {
			err := client.ConsumeRefresh(gctx, refreshWorker.HandleRefreshRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	} else {
		logger.Info("No broker configured; importing on the interval only", "interval", cfg.RefreshInterval)
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return processor.Stop(shutdownCtx)
	})

	return g.Wait()
}
