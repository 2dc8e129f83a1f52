package backend

import (
	"context"
	"time"

	"verkoop/internal/sheets"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the record source and optional resources.
type BackendResult struct {
	// Source serves the dashboard records.
	Source sheets.RecordSource
	// Store is set for backends that can hold an imported snapshot.
	Store sheets.SnapshotStore
	// Name identifies the backend in logs, cache keys and import runs.
	Name    string
	Cleanup CleanupFunc
}

// Close runs the cleanup function, if any.
func (r *BackendResult) Close() error {
	if r == nil || r.Cleanup == nil {
		return nil
	}
	return r.Cleanup()
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// File and Excel
	RecordsFile string
	ExcelFile   string

	// SQLite
	SQLiteDBPath string

	// Google Sheets and gviz
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetTabs                []string
	FetchTimeout             time.Duration

	// Memory backend demo year
	DemoYear int
}

// BackendType represents the type of backend
type BackendType string

const (
	FileBackend   BackendType = "file"
	SheetsBackend BackendType = "sheets"
	GvizBackend   BackendType = "gviz"
	ExcelBackend  BackendType = "excel"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case FileBackend, SheetsBackend, GvizBackend, ExcelBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// IsRemote reports whether the backend fetches over the network.
func (bt BackendType) IsRemote() bool {
	return bt == SheetsBackend || bt == GvizBackend
}
