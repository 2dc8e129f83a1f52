// Package analytics turns raw sales records into the grouped, sorted
// summaries shown on the dashboards. Every function is pure: it reads its
// input, never mutates it and keeps no state between calls.
package analytics

import "verkoop/internal/core"

// Filter keeps the records matching the selection, in input order.
// A period of core.AllPeriods disables the period test; an empty product
// disables the product test.
func Filter(records []core.Record, sel core.FilterSelection) []core.Record {
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if !sel.IsAllPeriods() && r.Period.Value != sel.Period {
			continue
		}
		if sel.Product != "" && r.Name.Value != sel.Product {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Periods returns the distinct period labels in first-seen order.
func Periods(records []core.Record) []string {
	return distinct(records, core.FieldPeriod)
}

// ProductNames returns the distinct product names in first-seen order.
func ProductNames(records []core.Record) []string {
	return distinct(records, core.FieldProduct)
}

func distinct(records []core.Record, name core.FieldName) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, r := range records {
		f, ok := r.Field(name)
		if !ok || !f.Present {
			continue
		}
		if _, dup := seen[f.Value]; dup {
			continue
		}
		seen[f.Value] = struct{}{}
		out = append(out, f.Value)
	}
	return out
}
