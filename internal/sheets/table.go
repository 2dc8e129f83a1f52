package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"verkoop/internal/core"
)

// RecordsFromTable converts a header row plus data rows into records.
// Rows with no non-blank cell are dropped. A record without a period gets
// defaultPeriod, usually the tab it was read from.
func RecordsFromTable(header []string, rows [][]any, cols core.Columns, defaultPeriod string) []core.Record {
	out := make([]core.Record, 0, len(rows))
	for _, row := range rows {
		m := make(map[string]any, len(header))
		blank := true
		for i, h := range header {
			if h == "" || i >= len(row) {
				continue
			}
			m[h] = row[i]
			if core.TextValue(row[i]) != "" {
				blank = false
			}
		}
		if blank {
			continue
		}
		r := core.RecordFromRow(m, cols)
		if !r.Period.Present && defaultPeriod != "" {
			r.Period = core.NewField(defaultPeriod)
		}
		out = append(out, r)
	}
	return out
}

// RecordsFromValues converts a raw cell matrix into records. The header is
// the first row naming at least one of the key columns; rows above it
// (titles, notes) are ignored. Without a header there are no records.
func RecordsFromValues(values [][]any, cols core.Columns, defaultPeriod string) []core.Record {
	h := HeaderIndex(values, cols)
	if h < 0 {
		return nil
	}
	header := make([]string, len(values[h]))
	for i, v := range values[h] {
		header[i] = core.TextValue(v)
	}
	return RecordsFromTable(header, values[h+1:], cols, defaultPeriod)
}

// HeaderIndex returns the index of the header row, or -1.
func HeaderIndex(values [][]any, cols core.Columns) int {
	known := []string{cols.Kind, cols.Name, cols.Color, cols.Customer, cols.Price}
	for i, row := range values {
		for _, cell := range row {
			text := core.TextValue(cell)
			if text == "" {
				continue
			}
			for _, k := range known {
				if strings.EqualFold(text, k) {
					return i
				}
			}
		}
	}
	return -1
}

// StringRows widens string rows, as spreadsheet libraries return them.
func StringRows(rows [][]string) [][]any {
	out := make([][]any, len(rows))
	for i, row := range rows {
		out[i] = make([]any, len(row))
		for j, v := range row {
			out[i][j] = v
		}
	}
	return out
}

// LoadTabs calls fetch for each tab in order and concatenates the results.
// A failing tab is logged and skipped; only when every tab fails is an
// error returned, joining the individual failures.
func LoadTabs(ctx context.Context, source string, tabs []string, fetch func(ctx context.Context, tab string) ([]core.Record, error)) ([]core.Record, error) {
	var (
		out  []core.Record
		errs []error
	)
	for _, tab := range tabs {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		recs, err := fetch(ctx, tab)
		if err != nil {
			slog.WarnContext(ctx, "Skipping tab", "source", source, "tab", tab, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", tab, err))
			continue
		}
		out = append(out, recs...)
	}
	if len(tabs) > 0 && len(errs) == len(tabs) {
		return nil, errors.Join(errs...)
	}
	return out, nil
}
