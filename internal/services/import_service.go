package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"verkoop/internal/core"
	"verkoop/internal/sheets"
)

// ErrImportRunning is returned when an import is already in progress.
var ErrImportRunning = errors.New("import already running")

// ImportService copies the records of a remote source into a local
// snapshot store. A failed or empty load is logged as a failed run and the
// previous snapshot stays in place.
type ImportService struct {
	source     sheets.RecordSource
	sourceName string
	store      sheets.SnapshotStore
	timeout    time.Duration

	mu      sync.Mutex
	running bool
	now     func() time.Time
}

// NewImportService creates an import service. timeout <= 0 disables the
// per-run deadline.
func NewImportService(source sheets.RecordSource, sourceName string, store sheets.SnapshotStore, timeout time.Duration) *ImportService {
	return &ImportService{
		source:     source,
		sourceName: sourceName,
		store:      store,
		timeout:    timeout,
		now:        time.Now,
	}
}

// SourceName returns the name of the configured source.
func (s *ImportService) SourceName() string {
	return s.sourceName
}

// Import runs one import. The returned run is the one written to the
// import log.
func (s *ImportService) Import(ctx context.Context) (core.ImportRun, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return core.ImportRun{}, ErrImportRunning
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	run := core.ImportRun{
		ID:        uuid.NewString(),
		Source:    s.sourceName,
		StartedAt: s.now().UTC(),
	}

	loadCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	records, err := s.source.LoadRecords(loadCtx)
	if err == nil && len(records) == 0 {
		err = core.ErrNoRecords
	}
	if err != nil {
		return s.fail(ctx, run, err)
	}

	run.Records = len(records)
	run.FinishedAt = s.now().UTC()
	if err := s.store.ReplaceRecords(ctx, run, records); err != nil {
		return s.fail(ctx, run, fmt.Errorf("replace snapshot: %w", err))
	}

	slog.InfoContext(ctx, "Import completed",
		"import_id", run.ID,
		"source", run.Source,
		"records", run.Records,
		"duration", run.FinishedAt.Sub(run.StartedAt))
	return run, nil
}

func (s *ImportService) fail(ctx context.Context, run core.ImportRun, cause error) (core.ImportRun, error) {
	run.Records = 0
	run.FinishedAt = s.now().UTC()
	run.Error = cause.Error()

	slog.ErrorContext(ctx, "Import failed, keeping previous snapshot",
		"import_id", run.ID,
		"source", run.Source,
		"error", cause)

	// The log write uses a fresh context so a timed-out load is still recorded.
	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.store.RecordImport(logCtx, run); err != nil {
		slog.ErrorContext(ctx, "Failed to record import", "import_id", run.ID, "error", err)
	}
	return run, fmt.Errorf("import from %s: %w", run.Source, cause)
}

// LastImport reports the most recent logged run.
func (s *ImportService) LastImport(ctx context.Context) (core.ImportRun, bool, error) {
	return s.store.LastImport(ctx)
}
