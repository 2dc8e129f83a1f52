package backend

import (
	"context"
	"fmt"
	"log/slog"

	"verkoop/internal/core"
	"verkoop/internal/sheets/excel"
	"verkoop/internal/sheets/file"
	gsheet "verkoop/internal/sheets/google"
	"verkoop/internal/sheets/memory"
	"verkoop/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger  *slog.Logger
	columns core.Columns
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger:  logger,
		columns: core.DefaultColumns(),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case FileBackend:
		f.logger.Info("Initialized file backend", "path", config.RecordsFile)
		return &BackendResult{Source: file.New(config.RecordsFile, f.columns), Name: file.SourceName}, nil
	case ExcelBackend:
		f.logger.Info("Initialized Excel backend", "path", config.ExcelFile)
		return &BackendResult{Source: excel.New(config.ExcelFile, nil, f.columns), Name: excel.SourceName}, nil
	case SheetsBackend:
		return f.createSheetsBackend(ctx, config)
	case GvizBackend:
		client := gsheet.NewGviz(config.GoogleSpreadsheetID, config.SheetTabs, f.columns, config.FetchTimeout)
		f.logger.Info("Initialized gviz backend", "tabs", len(config.SheetTabs))
		return &BackendResult{Source: client, Name: gsheet.GvizSourceName}, nil
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSheetsBackend(ctx context.Context, config Config) (*BackendResult, error) {
	cli, err := gsheet.New(ctx, gsheet.Options{
		SpreadsheetID:   config.GoogleSpreadsheetID,
		Tabs:            config.SheetTabs,
		Columns:         f.columns,
		CredentialsJSON: []byte(config.GoogleServiceAccountJSON),
		CredentialsFile: config.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
	}

	f.logger.Info("Initialized Google Sheets backend", "tabs", len(config.SheetTabs))
	return &BackendResult{Source: cli, Name: gsheet.SourceName}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)
	return &BackendResult{
		Source:  repo,
		Store:   repo,
		Name:    storage.SourceName,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend(config Config) (*BackendResult, error) {
	year := config.DemoYear
	if year == 0 {
		year = 2024
	}
	store := memory.New(memory.Demo(year)...)

	f.logger.Info("Initialized memory backend with demo data", "year", year)
	return &BackendResult{Source: store, Store: store, Name: memory.SourceName}, nil
}
