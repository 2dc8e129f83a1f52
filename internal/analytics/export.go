package analytics

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"verkoop/internal/core"
)

const (
	// ConversionCSVName is the download name of the CSV export.
	ConversionCSVName = "staaltjes_overzicht.csv"
	// ConversionXLSXName is the download name of the workbook export.
	ConversionXLSXName = "staaltjes_overzicht.xlsx"

	conversionSheet = "Staaltjes"
)

// ConversionHeader is the header row of both exports.
var ConversionHeader = []string{"Naam", "Staaltjes", "Verkoop", "Conversie (%)", "Verkoop details"}

// ConversionRow renders one item in export column order.
func ConversionRow(it core.ConversionItem) []string {
	return []string{
		it.Name,
		strconv.Itoa(it.Samples),
		strconv.Itoa(it.Sales),
		strconv.FormatFloat(it.ConversionRate, 'f', 2, 64),
		it.SalesDetails(),
	}
}

// WriteConversionCSV writes items as comma-joined lines separated by "\n".
// Cells are not quoted: a value containing a comma or newline breaks its
// row. Downstream spreadsheets rely on this exact layout.
func WriteConversionCSV(w io.Writer, items []core.ConversionItem) error {
	lines := make([]string, 0, len(items)+1)
	lines = append(lines, strings.Join(ConversionHeader, ","))
	for _, it := range items {
		lines = append(lines, strings.Join(ConversionRow(it), ","))
	}
	if _, err := io.WriteString(w, strings.Join(lines, "\n")); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return nil
}

// WriteConversionXLSX writes items to a single-sheet workbook with numeric
// cells for the counts and the rate.
func WriteConversionXLSX(w io.Writer, items []core.ConversionItem) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", conversionSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	header := make([]any, len(ConversionHeader))
	for i, h := range ConversionHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(conversionSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, it := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		row := []any{it.Name, it.Samples, it.Sales, roundRate(it.ConversionRate), it.SalesDetails()}
		if err := f.SetSheetRow(conversionSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func roundRate(v float64) float64 {
	f, _ := strconv.ParseFloat(strconv.FormatFloat(v, 'f', 2, 64), 64)
	return f
}
