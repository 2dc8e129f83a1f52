package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL of the repository.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns queries bound to tx.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// RecordRow is one row of the records table.
type RecordRow struct {
	Position     int64
	Kind         sql.NullString
	Name         sql.NullString
	Color        sql.NullString
	Size         sql.NullString
	Customer     sql.NullString
	City         sql.NullString
	Period       sql.NullString
	Date         sql.NullString
	PriceRaw     sql.NullString
	PriceAmount  float64
	PriceNumeric bool
}

// ImportRow is one row of the imports table. Times are fixed-width UTC text.
type ImportRow struct {
	ID         string
	Source     string
	Records    int64
	StartedAt  string
	FinishedAt string
	Error      string
}

const listRecords = `SELECT position, kind, name, color, size, customer, city, period, date, price_raw, price_amount, price_numeric
FROM records
ORDER BY position`

func (q *Queries) ListRecords(ctx context.Context) ([]RecordRow, error) {
	rows, err := q.db.QueryContext(ctx, listRecords)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RecordRow
	for rows.Next() {
		var i RecordRow
		if err := rows.Scan(
			&i.Position, &i.Kind, &i.Name, &i.Color, &i.Size, &i.Customer,
			&i.City, &i.Period, &i.Date, &i.PriceRaw, &i.PriceAmount, &i.PriceNumeric,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const countRecords = `SELECT COUNT(*) FROM records`

func (q *Queries) CountRecords(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countRecords).Scan(&n)
	return n, err
}

const deleteRecords = `DELETE FROM records`

func (q *Queries) DeleteRecords(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteRecords)
	return err
}

const insertRecord = `INSERT INTO records (position, kind, name, color, size, customer, city, period, date, price_raw, price_amount, price_numeric)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// PrepareInsertRecord prepares the insert for a bulk load.
func (q *Queries) PrepareInsertRecord(ctx context.Context) (*sql.Stmt, error) {
	return q.db.PrepareContext(ctx, insertRecord)
}

func insertRecordArgs(r RecordRow) []any {
	return []any{r.Position, r.Kind, r.Name, r.Color, r.Size, r.Customer, r.City, r.Period, r.Date, r.PriceRaw, r.PriceAmount, r.PriceNumeric}
}

const upsertImport = `INSERT INTO imports (id, source, records, started_at, finished_at, error)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    source = excluded.source,
    records = excluded.records,
    started_at = excluded.started_at,
    finished_at = excluded.finished_at,
    error = excluded.error`

func (q *Queries) UpsertImport(ctx context.Context, arg ImportRow) error {
	_, err := q.db.ExecContext(ctx, upsertImport, arg.ID, arg.Source, arg.Records, arg.StartedAt, arg.FinishedAt, arg.Error)
	return err
}

const lastImport = `SELECT id, source, records, started_at, finished_at, error
FROM imports
ORDER BY started_at DESC, rowid DESC
LIMIT 1`

func (q *Queries) LastImport(ctx context.Context) (ImportRow, error) {
	var i ImportRow
	err := q.db.QueryRowContext(ctx, lastImport).Scan(&i.ID, &i.Source, &i.Records, &i.StartedAt, &i.FinishedAt, &i.Error)
	return i, err
}

const lastSuccessfulImport = `SELECT id, source, records, started_at, finished_at, error
FROM imports
WHERE error = '' AND finished_at != ''
ORDER BY started_at DESC, rowid DESC
LIMIT 1`

func (q *Queries) LastSuccessfulImport(ctx context.Context) (ImportRow, error) {
	var i ImportRow
	err := q.db.QueryRowContext(ctx, lastSuccessfulImport).Scan(&i.ID, &i.Source, &i.Records, &i.StartedAt, &i.FinishedAt, &i.Error)
	return i, err
}
