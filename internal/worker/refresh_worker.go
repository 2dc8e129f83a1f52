// Package worker runs snapshot imports on request and on a schedule.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"verkoop/internal/core"
	"verkoop/internal/services"
)

// Importer runs one import of the configured source.
type Importer interface {
	Import(ctx context.Context) (core.ImportRun, error)
	SourceName() string
	LastImport(ctx context.Context) (core.ImportRun, bool, error)
}

var _ Importer = (*services.ImportService)(nil)

// RefreshWorker handles refresh requests coming from AMQP.
type RefreshWorker struct {
	importer Importer
	// minGap drops requests arriving within minGap of a successful import.
	minGap time.Duration
	now    func() time.Time
}

func NewRefreshWorker(importer Importer, minGap time.Duration) *RefreshWorker {
	return &RefreshWorker{importer: importer, minGap: minGap, now: time.Now}
}

// HandleRefreshRequest processes a single refresh request. Requests for
// another source are acknowledged and ignored.
func (w *RefreshWorker) HandleRefreshRequest(ctx context.Context, req core.RefreshRequest) error {
	slog.InfoContext(ctx, "Processing refresh request",
		"message_id", req.ID,
		"source", req.Source,
		"requested_at", req.RequestedAt)

	if req.Source != "" && req.Source != w.importer.SourceName() {
		slog.WarnContext(ctx, "Ignoring refresh request for another source",
			"message_id", req.ID,
			"requested", req.Source,
			"configured", w.importer.SourceName())
		return nil
	}

	if w.recentlyImported(ctx, req) {
		slog.InfoContext(ctx, "Snapshot is newer than the request, skipping import", "message_id", req.ID)
		return nil
	}

	run, err := w.importer.Import(ctx)
	if errors.Is(err, services.ErrImportRunning) {
		slog.InfoContext(ctx, "Import already running, request coalesced", "message_id", req.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("import for request %s: %w", req.ID, err)
	}

	slog.InfoContext(ctx, "Refresh request completed",
		"message_id", req.ID,
		"import_id", run.ID,
		"records", run.Records)
	return nil
}

// recentlyImported reports whether a successful import started after the
// request was made, or within minGap of now.
func (w *RefreshWorker) recentlyImported(ctx context.Context, req core.RefreshRequest) bool {
	last, ok, err := w.importer.LastImport(ctx)
	if err != nil || !ok || !last.Succeeded() {
		return false
	}
	if !req.RequestedAt.IsZero() && last.StartedAt.After(req.RequestedAt) {
		return true
	}
	return w.minGap > 0 && w.now().Sub(last.FinishedAt) < w.minGap
}

// StartupImport imports once when the worker starts unless the snapshot is
// younger than maxAge.
func (w *RefreshWorker) StartupImport(ctx context.Context, maxAge time.Duration) error {
	last, ok, err := w.importer.LastImport(ctx)
	if err != nil {
		slog.WarnContext(ctx, "Could not read import log, importing anyway", "error", err)
	} else if ok && last.Succeeded() && w.now().Sub(last.FinishedAt) < maxAge {
		slog.InfoContext(ctx, "Snapshot is fresh",
			"last_import", last.FinishedAt.Format(time.RFC3339),
			"records", last.Records,
			"age", w.now().Sub(last.FinishedAt).Round(time.Second))
		return nil
	}

	slog.InfoContext(ctx, "Running startup import", "source", w.importer.SourceName())
	if _, err := w.importer.Import(ctx); err != nil {
		return fmt.Errorf("startup import: %w", err)
	}
	return nil
}
