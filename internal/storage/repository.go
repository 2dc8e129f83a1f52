package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"verkoop/internal/core"
	ports "verkoop/internal/sheets"

	_ "modernc.org/sqlite"
)

const (
	// SourceName identifies the snapshot backend.
	SourceName = "sqlite"

	// timeLayout has a fixed width so stored times sort as text.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var _ ports.SnapshotStore = (*SQLiteRepository)(nil)

// SQLiteRepository stores the last imported record snapshot.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, queries: New(db)}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the connection; used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// LoadRecords implements sheets.RecordSource, in import order.
func (r *SQLiteRepository) LoadRecords(ctx context.Context) ([]core.Record, error) {
	rows, err := r.queries.ListRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, recordFromRow(row))
	}
	return out, nil
}

// Count returns the number of records in the snapshot.
func (r *SQLiteRepository) Count(ctx context.Context) (int64, error) {
	n, err := r.queries.CountRecords(ctx)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

// ReplaceRecords swaps the snapshot and logs run in one transaction. On
// error the previous snapshot is untouched.
func (r *SQLiteRepository) ReplaceRecords(ctx context.Context, run core.ImportRun, records []core.Record) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	q := r.queries.WithTx(tx)
	if err := q.DeleteRecords(ctx); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	stmt, err := q.PrepareInsertRecord(ctx)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, rec := range records {
		if _, err := stmt.ExecContext(ctx, insertRecordArgs(rowFromRecord(int64(i), rec))...); err != nil {
			return fmt.Errorf("insert record %d: %w", i, err)
		}
	}

	run.Records = len(records)
	if err := q.UpsertImport(ctx, importRow(run)); err != nil {
		return fmt.Errorf("log import: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot replaced", "import_id", run.ID, "source", run.Source, "records", len(records))
	return nil
}

// RecordImport logs a run without touching the records.
func (r *SQLiteRepository) RecordImport(ctx context.Context, run core.ImportRun) error {
	if err := r.queries.UpsertImport(ctx, importRow(run)); err != nil {
		return fmt.Errorf("log import: %w", err)
	}
	return nil
}

// LastImport returns the most recent run, failed or not.
func (r *SQLiteRepository) LastImport(ctx context.Context) (core.ImportRun, bool, error) {
	return r.importFrom(r.queries.LastImport(ctx))
}

// LastSuccessfulImport returns the run that produced the current snapshot.
func (r *SQLiteRepository) LastSuccessfulImport(ctx context.Context) (core.ImportRun, bool, error) {
	return r.importFrom(r.queries.LastSuccessfulImport(ctx))
}

func (r *SQLiteRepository) importFrom(row ImportRow, err error) (core.ImportRun, bool, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ImportRun{}, false, nil
	}
	if err != nil {
		return core.ImportRun{}, false, fmt.Errorf("read import: %w", err)
	}
	return core.ImportRun{
		ID:         row.ID,
		Source:     row.Source,
		Records:    int(row.Records),
		StartedAt:  parseTime(row.StartedAt),
		FinishedAt: parseTime(row.FinishedAt),
		Error:      row.Error,
	}, true, nil
}

func importRow(run core.ImportRun) ImportRow {
	return ImportRow{
		ID:         run.ID,
		Source:     run.Source,
		Records:    int64(run.Records),
		StartedAt:  formatTime(run.StartedAt),
		FinishedAt: formatTime(run.FinishedAt),
		Error:      run.Error,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullable(f core.Field) sql.NullString {
	return sql.NullString{String: f.Value, Valid: f.Present}
}

func field(s sql.NullString) core.Field {
	if !s.Valid {
		return core.Field{}
	}
	return core.NewField(s.String)
}

func rowFromRecord(pos int64, rec core.Record) RecordRow {
	return RecordRow{
		Position:     pos,
		Kind:         nullable(rec.Kind),
		Name:         nullable(rec.Name),
		Color:        nullable(rec.Color),
		Size:         nullable(rec.Size),
		Customer:     nullable(rec.Customer),
		City:         nullable(rec.City),
		Period:       nullable(rec.Period),
		Date:         nullable(rec.Date),
		PriceRaw:     sql.NullString{String: rec.Price.Raw, Valid: rec.Price.Present},
		PriceAmount:  rec.Price.Amount,
		PriceNumeric: rec.Price.Numeric,
	}
}

func recordFromRow(row RecordRow) core.Record {
	return core.Record{
		Kind:     field(row.Kind),
		Name:     field(row.Name),
		Color:    field(row.Color),
		Size:     field(row.Size),
		Customer: field(row.Customer),
		City:     field(row.City),
		Period:   field(row.Period),
		Date:     field(row.Date),
		Price: core.Price{
			Amount:  row.PriceAmount,
			Raw:     row.PriceRaw.String,
			Present: row.PriceRaw.Valid,
			Numeric: row.PriceNumeric,
		},
	}
}
