package analytics

import (
	"cmp"
	"slices"

	"verkoop/internal/core"
)

const (
	// DefaultTopN is the number of bars on the overview charts.
	DefaultTopN = 5
	// GeoTopN is the number of bars on the locations chart.
	GeoTopN = 10
)

// DefaultWallpaperKinds are the product kinds that count as turnover on
// the best-selling dashboard.
var DefaultWallpaperKinds = []string{"standaard behang", "behangcirkel", "custom behang"}

// grouping accumulates values per key and remembers first-seen order.
type grouping[T any] struct {
	index map[string]int
	keys  []core.GroupKey
	vals  []T
}

func newGrouping[T any]() *grouping[T] {
	return &grouping[T]{index: make(map[string]int)}
}

// slot returns the position of k, adding a zero value on first sight.
func (g *grouping[T]) slot(k core.GroupKey) int {
	id := k.ID()
	if i, ok := g.index[id]; ok {
		return i
	}
	var zero T
	g.index[id] = len(g.keys)
	g.keys = append(g.keys, k)
	g.vals = append(g.vals, zero)
	return len(g.keys) - 1
}

func (g *grouping[T]) len() int {
	return len(g.keys)
}

// CountByField counts records per value of field. Records without the field
// are skipped. The result is ordered by descending count; equal counts keep
// first-seen order. topN <= 0 returns every group.
func CountByField(records []core.Record, field core.FieldName, topN int) []core.Count {
	g := newGrouping[int]()
	for _, r := range records {
		f, ok := r.Field(field)
		if !ok || !f.Present {
			continue
		}
		g.vals[g.slot(core.Key(f.Value))]++
	}
	return rankCounts(g, core.GroupKey.Dash, topN)
}

// CountByCombination counts records per "{a} ({b})" pair. Records missing
// either field are skipped.
func CountByCombination(records []core.Record, fieldA, fieldB core.FieldName, topN int) []core.Count {
	g := newGrouping[int]()
	for _, r := range records {
		a, okA := r.Field(fieldA)
		b, okB := r.Field(fieldB)
		if !okA || !okB || !a.Present || !b.Present {
			continue
		}
		g.vals[g.slot(core.Key(a.Value, b.Value))]++
	}
	return rankCounts(g, core.GroupKey.Labelled, topN)
}

func rankCounts(g *grouping[int], render func(core.GroupKey) string, topN int) []core.Count {
	out := make([]core.Count, 0, g.len())
	for i, k := range g.keys {
		out = append(out, core.Count{Name: render(k), Value: g.vals[i]})
	}
	slices.SortStableFunc(out, func(a, b core.Count) int {
		return cmp.Compare(b.Value, a.Value)
	})
	return truncate(out, topN)
}

type revenueAcc struct {
	omzet  float64
	aantal int
}

// RevenueByProduct sums the price per "{name} - {color} ({kind})" for the
// records whose kind is in kinds. A non-numeric price adds 0 but the row is
// still counted. Records missing name, color or kind are skipped. Ordered
// by descending turnover, truncated to topN (<= 0 keeps all).
func RevenueByProduct(records []core.Record, kinds []string, topN int) []core.Revenue {
	allowed := make(map[string]struct{}, len(kinds))
	for _, k := range kinds {
		allowed[k] = struct{}{}
	}
	g := newGrouping[revenueAcc]()
	for _, r := range records {
		if !r.HasAll(core.FieldKind, core.FieldProduct, core.FieldColor) {
			continue
		}
		if _, ok := allowed[r.Kind.Value]; !ok {
			continue
		}
		i := g.slot(core.Key(r.Name.Value, r.Color.Value, r.Kind.Value))
		g.vals[i].omzet += r.Price.Value()
		g.vals[i].aantal++
	}
	out := make([]core.Revenue, 0, g.len())
	for i, k := range g.keys {
		out = append(out, core.Revenue{Name: k.Labelled(), Omzet: g.vals[i].omzet, Aantal: g.vals[i].aantal})
	}
	slices.SortStableFunc(out, func(a, b core.Revenue) int {
		return cmp.Compare(b.Omzet, a.Omzet)
	})
	return truncate(out, topN)
}

type conversionAcc struct {
	samples int
	sales   int
	byType  *grouping[int]
}

// SampleConversion relates samples to sales per "{name} - {color}". Only
// records with customer, kind, name and color participate. The result is
// in first-seen group order; callers sort it themselves.
func SampleConversion(records []core.Record) []core.ConversionItem {
	g := newGrouping[conversionAcc]()
	for _, r := range records {
		if !r.HasAll(core.FieldCustomer, core.FieldKind, core.FieldProduct, core.FieldColor) {
			continue
		}
		i := g.slot(core.Key(r.Name.Value, r.Color.Value))
		acc := &g.vals[i]
		if r.IsSample() {
			acc.samples++
			continue
		}
		acc.sales++
		if acc.byType == nil {
			acc.byType = newGrouping[int]()
		}
		acc.byType.vals[acc.byType.slot(core.Key(r.Kind.Value))]++
	}

	out := make([]core.ConversionItem, 0, g.len())
	for i, k := range g.keys {
		acc := g.vals[i]
		item := core.ConversionItem{
			Name:           k.Dash(),
			Samples:        acc.samples,
			Sales:          acc.sales,
			ConversionRate: ConversionRate(acc.sales, acc.samples),
			SalesByType:    []core.TypeCount{},
		}
		if acc.byType != nil {
			for j, tk := range acc.byType.keys {
				item.SalesByType = append(item.SalesByType, core.TypeCount{Type: tk[0], Count: acc.byType.vals[j]})
			}
		}
		out = append(out, item)
	}
	return out
}

// ConversionRate is sales per sample as a percentage; 0 without samples.
func ConversionRate(sales, samples int) float64 {
	if samples <= 0 {
		return 0
	}
	return float64(sales) / float64(samples) * 100
}

// SummarizeConversion derives the KPI cards from a conversion result. The
// best sample is the first item, in input order, with the highest rate.
func SummarizeConversion(items []core.ConversionItem) core.ConversionSummary {
	var s core.ConversionSummary
	best := -1
	for i, it := range items {
		s.TotalSamples += it.Samples
		s.TotalSales += it.Sales
		if best < 0 || it.ConversionRate > items[best].ConversionRate {
			best = i
		}
	}
	s.AverageRate = ConversionRate(s.TotalSales, s.TotalSamples)
	if best >= 0 {
		s.BestSample = items[best].Name
		s.HasBest = true
	}
	return s
}

func truncate[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}
