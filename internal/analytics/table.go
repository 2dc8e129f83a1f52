package analytics

import (
	"cmp"
	"slices"
	"strings"

	"verkoop/internal/core"
)

// PageStep is the number of extra rows shown per "load more".
const PageStep = 10

// SortColumn names a sortable column of the conversion table.
type SortColumn string

const (
	SortByName           SortColumn = "name"
	SortBySamples        SortColumn = "samples"
	SortBySales          SortColumn = "sales"
	SortByConversionRate SortColumn = "conversionRate"
)

// Direction is a sort direction.
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSortColumn returns the column for s, or false if unknown.
func ParseSortColumn(s string) (SortColumn, bool) {
	switch c := SortColumn(s); c {
	case SortByName, SortBySamples, SortBySales, SortByConversionRate:
		return c, true
	}
	return "", false
}

// ParseDirection reads "asc"/"desc"; anything else is ascending.
func ParseDirection(s string) Direction {
	if strings.EqualFold(s, string(Descending)) || strings.EqualFold(s, "descending") {
		return Descending
	}
	return Ascending
}

// SortState is the current column sort of a table. The zero value means
// unsorted.
type SortState struct {
	Column    SortColumn
	Direction Direction
}

// Toggle returns the state after clicking column: the same column flips
// direction, another column starts ascending.
func (s SortState) Toggle(column SortColumn) SortState {
	if s.Column == column && s.Direction == Ascending {
		return SortState{Column: column, Direction: Descending}
	}
	return SortState{Column: column, Direction: Ascending}
}

// Next returns the direction the column header should link to.
func (s SortState) Next(column SortColumn) Direction {
	return s.Toggle(column).Direction
}

func compareItems(column SortColumn) func(a, b core.ConversionItem) int {
	switch column {
	case SortByName:
		return func(a, b core.ConversionItem) int { return strings.Compare(a.Name, b.Name) }
	case SortBySamples:
		return func(a, b core.ConversionItem) int { return cmp.Compare(a.Samples, b.Samples) }
	case SortBySales:
		return func(a, b core.ConversionItem) int { return cmp.Compare(a.Sales, b.Sales) }
	case SortByConversionRate:
		return func(a, b core.ConversionItem) int { return cmp.Compare(a.ConversionRate, b.ConversionRate) }
	}
	return nil
}

// SortConversion returns a sorted copy of items. Descending is the exact
// reverse of the stable ascending order. An unknown or empty column
// returns a copy in input order.
func SortConversion(items []core.ConversionItem, state SortState) []core.ConversionItem {
	out := slices.Clone(items)
	less := compareItems(state.Column)
	if less == nil {
		return out
	}
	slices.SortStableFunc(out, less)
	if state.Direction == Descending {
		slices.Reverse(out)
	}
	return out
}

// SearchByName keeps the items whose name contains query, ignoring case.
// An empty query returns items unchanged.
func SearchByName(items []core.ConversionItem, query string) []core.ConversionItem {
	query = strings.TrimSpace(query)
	if query == "" {
		return items
	}
	q := strings.ToLower(query)
	out := make([]core.ConversionItem, 0, len(items))
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), q) {
			out = append(out, it)
		}
	}
	return out
}

// Paginate returns the first limit items. A limit <= 0 means one page.
func Paginate[T any](items []T, limit int) []T {
	if limit <= 0 {
		limit = PageStep
	}
	if limit >= len(items) {
		return items
	}
	return items[:limit]
}

// NextLimit is the row limit after one "load more".
func NextLimit(limit int) int {
	if limit <= 0 {
		limit = PageStep
	}
	return limit + PageStep
}
