// Package excel reads sales records from an .xlsx workbook with one sheet
// per period.
package excel

import (
	"context"
	"fmt"
	"io"
	"slices"

	"github.com/xuri/excelize/v2"

	"verkoop/internal/core"
	ports "verkoop/internal/sheets"
)

// SourceName identifies this adapter in logs and import runs.
const SourceName = "excel"

var _ ports.RecordSource = (*Source)(nil)

// Source reads a workbook from disk on every load.
type Source struct {
	path string
	// tabs restricts and orders the sheets; empty means every sheet.
	tabs []string
	cols core.Columns
}

func New(path string, tabs []string, cols core.Columns) *Source {
	return &Source{path: path, tabs: append([]string(nil), tabs...), cols: cols}
}

func (s *Source) LoadRecords(ctx context.Context) ([]core.Record, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return loadWorkbook(ctx, f, s.tabs, s.cols)
}

// Read parses a workbook from r, e.g. an uploaded file.
func Read(ctx context.Context, r io.Reader, tabs []string, cols core.Columns) ([]core.Record, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return loadWorkbook(ctx, f, tabs, cols)
}

func loadWorkbook(ctx context.Context, f *excelize.File, tabs []string, cols core.Columns) ([]core.Record, error) {
	available := f.GetSheetList()
	if len(tabs) == 0 {
		tabs = available
	}
	return ports.LoadTabs(ctx, SourceName, tabs, func(_ context.Context, tab string) ([]core.Record, error) {
		if !slices.Contains(available, tab) {
			return nil, fmt.Errorf("sheet %q not in workbook", tab)
		}
		rows, err := f.GetRows(tab)
		if err != nil {
			return nil, fmt.Errorf("read sheet: %w", err)
		}
		return ports.RecordsFromValues(ports.StringRows(rows), cols, tab), nil
	})
}
