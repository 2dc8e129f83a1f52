// Package file reads sales records from a JSON export: an array of row
// objects keyed by column header.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"verkoop/internal/core"
	ports "verkoop/internal/sheets"
)

// SourceName identifies this adapter in logs and import runs.
const SourceName = "file"

var _ ports.RecordSource = (*Source)(nil)

type Source struct {
	path string
	cols core.Columns
}

func New(path string, cols core.Columns) *Source {
	return &Source{path: path, cols: cols}
}

// LoadRecords re-reads the file on every call.
func (s *Source) LoadRecords(ctx context.Context) ([]core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("read records file: %w", err)
	}
	recs, err := Decode(bytes.NewReader(b), s.cols)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return recs, nil
}

// Decode parses a JSON array of row objects. Numbers are kept as
// json.Number so prices keep their written precision.
func Decode(r io.Reader, cols core.Columns) ([]core.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rows []map[string]any
	if err := dec.Decode(&rows); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		if row == nil {
			continue
		}
		out = append(out, core.RecordFromRow(row, cols))
	}
	return out, nil
}
