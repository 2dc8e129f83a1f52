package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"time"

	"verkoop/internal/core"
)

type yearMonth struct {
	year  int
	month time.Month
}

// RevenueByMonth sums the price per calendar month of the record date.
// Records with an unparseable date are skipped; non-numeric prices add 0.
// Months are returned in calendar order; the year is appended to the
// label only when the records span more than one year.
func RevenueByMonth(records []core.Record) []core.MonthRevenue {
	totals := make(map[yearMonth]float64)
	for _, r := range records {
		if !r.Date.Present {
			continue
		}
		t, ok := core.ParseDate(r.Date.Value)
		if !ok {
			continue
		}
		totals[yearMonth{t.Year(), t.Month()}] += r.Price.Value()
	}

	keys := make([]yearMonth, 0, len(totals))
	years := make(map[int]struct{})
	for k := range totals {
		keys = append(keys, k)
		years[k.year] = struct{}{}
	}
	slices.SortFunc(keys, func(a, b yearMonth) int {
		if c := cmp.Compare(a.year, b.year); c != 0 {
			return c
		}
		return cmp.Compare(a.month, b.month)
	})

	out := make([]core.MonthRevenue, 0, len(keys))
	for _, k := range keys {
		label := core.ShortMonthName(k.month)
		if len(years) > 1 {
			label = fmt.Sprintf("%s %d", label, k.year)
		}
		out = append(out, core.MonthRevenue{Month: label, MonthIndex: int(k.month), Omzet: totals[k]})
	}
	return out
}
