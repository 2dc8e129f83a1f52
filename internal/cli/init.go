// Package cli holds the start-up steps shared by the verkoop binaries and
// the commands of verkoopctl.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"verkoop/internal/backend"
	"verkoop/internal/config"
	"verkoop/internal/core"
	"verkoop/internal/log"
	"verkoop/internal/services"
	"verkoop/internal/sheets"
	"verkoop/internal/sheets/excel"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from the config and makes it the
// slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Component: component,
		Format:    cfg.LogFormat,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}

// NewDashboard opens the data backend and wraps it in a DashboardService.
// The caller closes the returned backend.
func NewDashboard(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.DashboardService, *backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, nil, err
	}
	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create %s backend: %w", bcfg.Type, err)
	}
	dash := services.NewDashboardService(res.Source, services.DashboardConfig{
		SourceName:   res.Name,
		FetchTimeout: cfg.FetchTimeout,
		CacheTTL:     cfg.CacheTTL,
		Periods:      cfg.Periods,
	})
	return dash, res, nil
}

// NewImporter wires the import source to the sqlite snapshot store. The
// caller closes both returned backends.
func NewImporter(ctx context.Context, cfg *config.Config, logger *log.Logger) (*services.ImportService, *backend.BackendResult, *backend.BackendResult, error) {
	factory := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger)

	srcCfg, err := backend.ImportFromAppConfig(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	src, err := factory.CreateBackend(ctx, srcCfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("create %s import source: %w", srcCfg.Type, err)
	}

	storeCfg := srcCfg
	storeCfg.Type = backend.SQLiteBackend
	store, err := factory.CreateBackend(ctx, storeCfg)
	if err != nil {
		_ = src.Close()
		return nil, nil, nil, fmt.Errorf("open snapshot store: %w", err)
	}
	importer := services.NewImportService(src.Source, src.Name, store.Store, cfg.FetchTimeout)
	return importer, src, store, nil
}

// ImportWorkbook replaces the sqlite snapshot with the records of an .xlsx
// workbook read from r, one sheet per period.
func ImportWorkbook(ctx context.Context, cfg *config.Config, logger *log.Logger, r io.Reader) (core.ImportRun, error) {
	store, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, backend.Config{
		Type:         backend.SQLiteBackend,
		SQLiteDBPath: cfg.SQLiteDBPath,
	})
	if err != nil {
		return core.ImportRun{}, fmt.Errorf("open snapshot store: %w", err)
	}
	defer store.Close()

	src := sheets.SourceFunc(func(ctx context.Context) ([]core.Record, error) {
		return excel.Read(ctx, r, nil, core.DefaultColumns())
	})
	return services.NewImportService(src, excel.SourceName, store.Store, cfg.FetchTimeout).Import(ctx)
}
