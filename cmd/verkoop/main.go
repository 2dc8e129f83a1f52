package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"verkoop/internal/amqp"
	"verkoop/internal/backend"
	"verkoop/internal/cache"
	"verkoop/internal/cli"
	"verkoop/internal/config"
	"verkoop/internal/core"
	apphttp "verkoop/internal/http"
	"verkoop/internal/log"
	"verkoop/internal/services"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	dash, data, err := cli.NewDashboard(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer data.Close()

	opts := apphttp.Options{
		DashboardPassword: cfg.DashboardPassword,
		InsightsPassword:  cfg.InsightsPassword,
		SourceName:        cfg.ImportBackend,
		CookieSecure:      os.Getenv("COOKIE_SECURE") == "true",
		Logger:            logger,
	}
	if data.Store != nil {
		opts.Imports = data.Store
	}

	if cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			return fmt.Errorf("connect to broker: %w", err)
		}
		defer client.Close()
		opts.Refresher = client
		logger.Info("Refresh requests go to the broker", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	// Without a broker a sqlite snapshot is kept fresh in-process.
	var processor *services.RefreshProcessor
	if data.Name == backend.SQLiteBackend.String() && !cfg.AMQPEnabled() {
		importer, src, store, err := cli.NewImporter(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer src.Close()
		defer store.Close()
		processor = services.NewRefreshProcessor(importer, services.RefreshProcessorConfig{
			Interval:    cfg.RefreshInterval,
			RunOnStart:  true,
			AfterImport: dash.Invalidate,
		})
		opts.Refresher = &localRefresher{importer: importer, dash: dash, logger: logger}
	}

	srv := apphttp.NewServer(":"+cfg.Port, dash, opts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	caches := cache.NewManager()
	if c := dash.Cache(); c != nil {
		caches.Register("records", c)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting verkoop server",
			"port", cfg.Port,
			"backend", data.Name,
			"auth", cfg.AuthEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		return caches.Run(gctx, time.Minute)
	})
	if processor != nil {
		if err := processor.Start(gctx); err != nil {
			return err
		}
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if processor != nil {
			if err := processor.Stop(shutdownCtx); err != nil {
				logger.Warn("Refresh processor stop", log.FieldError, err)
			}
		}
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// localRefresher runs a requested import in the background when there is
// no broker, then drops the cached records.
type localRefresher struct {
	importer *services.ImportService
	dash     *services.DashboardService
	logger   *log.Logger
}

func (l *localRefresher) PublishRefresh(ctx context.Context, _ string) (core.RefreshRequest, error) {
	req := core.RefreshRequest{
		ID:          uuid.NewString(),
		Source:      l.importer.SourceName(),
		RequestedAt: time.Now().UTC(),
	}
	go func() {
		ctx := context.WithoutCancel(ctx)
		run, err := l.importer.Import(ctx)
		switch {
		case errors.Is(err, services.ErrImportRunning):
			l.logger.InfoContext(ctx, "Import already running", log.FieldMessageID, req.ID)
		case err != nil:
			l.logger.WarnContext(ctx, "Requested import failed", log.FieldMessageID, req.ID, log.FieldError, err)
		default:
			l.dash.Invalidate()
			l.logger.InfoContext(ctx, "Requested import done", log.FieldImportID, run.ID, log.FieldRecords, run.Records)
		}
	}()
	return req, nil
}
