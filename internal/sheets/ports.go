package sheets

import (
	"context"

	"verkoop/internal/core"
)

// Ports for outbound adapters.
type (
	// RecordSource loads the full, unfiltered list of sales records.
	RecordSource interface {
		LoadRecords(ctx context.Context) ([]core.Record, error)
	}

	// SnapshotWriter replaces the local copy of the records in one step.
	SnapshotWriter interface {
		ReplaceRecords(ctx context.Context, run core.ImportRun, records []core.Record) error
	}

	// ImportLog records import attempts, failed ones included.
	ImportLog interface {
		RecordImport(ctx context.Context, run core.ImportRun) error
		LastImport(ctx context.Context) (core.ImportRun, bool, error)
	}

	// SnapshotStore is a local record store fed by imports.
	SnapshotStore interface {
		RecordSource
		SnapshotWriter
		ImportLog
	}
)

// SourceFunc adapts a function to RecordSource.
type SourceFunc func(ctx context.Context) ([]core.Record, error)

func (f SourceFunc) LoadRecords(ctx context.Context) ([]core.Record, error) {
	return f(ctx)
}
