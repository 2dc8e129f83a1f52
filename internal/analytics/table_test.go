package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verkoop/internal/core"
)

func tableFixture() []core.ConversionItem {
	return []core.ConversionItem{
		{Name: "Roos - Rood", Samples: 3, Sales: 3, ConversionRate: 100},
		{Name: "tulp - Geel", Samples: 0, Sales: 2, ConversionRate: 0},
		{Name: "Lelie - Wit", Samples: 1, Sales: 0, ConversionRate: 0},
		{Name: "Anjer - Roze", Samples: 2, Sales: 3, ConversionRate: 150},
		{Name: "Roos - Wit", Samples: 3, Sales: 1, ConversionRate: 33.333333333333336},
	}
}

func names(items []core.ConversionItem) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Name)
	}
	return out
}

func TestSortStateToggle(t *testing.T) {
	var s SortState
	s = s.Toggle(SortBySales)
	assert.Equal(t, SortState{SortBySales, Ascending}, s)
	s = s.Toggle(SortBySales)
	assert.Equal(t, SortState{SortBySales, Descending}, s)
	s = s.Toggle(SortBySales)
	assert.Equal(t, SortState{SortBySales, Ascending}, s)
	s = s.Toggle(SortBySales).Toggle(SortByName)
	assert.Equal(t, SortState{SortByName, Ascending}, s)
	assert.Equal(t, Descending, s.Next(SortByName))
	assert.Equal(t, Ascending, s.Next(SortBySamples))
}

func TestSortConversion(t *testing.T) {
	items := tableFixture()

	tests := []struct {
		name  string
		state SortState
		want  []string
	}{
		{"unsorted", SortState{}, []string{"Roos - Rood", "tulp - Geel", "Lelie - Wit", "Anjer - Roze", "Roos - Wit"}},
		{"name is byte order", SortState{SortByName, Ascending}, []string{"Anjer - Roze", "Lelie - Wit", "Roos - Rood", "Roos - Wit", "tulp - Geel"}},
		{"samples stable", SortState{SortBySamples, Ascending}, []string{"tulp - Geel", "Lelie - Wit", "Anjer - Roze", "Roos - Rood", "Roos - Wit"}},
		{"rate numeric", SortState{SortByConversionRate, Ascending}, []string{"tulp - Geel", "Lelie - Wit", "Roos - Wit", "Roos - Rood", "Anjer - Roze"}},
		{"sales desc", SortState{SortBySales, Descending}, []string{"Anjer - Roze", "Roos - Rood", "tulp - Geel", "Roos - Wit", "Lelie - Wit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, names(SortConversion(items, tt.state)))
		})
	}
}

func TestSortConversionTwoClicksReverse(t *testing.T) {
	items := tableFixture()
	for _, col := range []SortColumn{SortByName, SortBySamples, SortBySales, SortByConversionRate} {
		first := SortState{}.Toggle(col)
		second := first.Toggle(col)

		asc := SortConversion(items, first)
		desc := SortConversion(items, second)
		require.Len(t, desc, len(asc))
		for i := range asc {
			assert.Equal(t, asc[i], desc[len(desc)-1-i], "column %s index %d", col, i)
		}
		assert.Equal(t, asc, SortConversion(items, first), "sort is idempotent")
	}
	assert.Equal(t, tableFixture(), items, "input untouched")
}

func TestSearchByName(t *testing.T) {
	items := tableFixture()
	assert.Equal(t, items, SearchByName(items, ""))
	assert.Equal(t, items, SearchByName(items, "   "))
	assert.Equal(t, []string{"Roos - Rood", "Roos - Wit"}, names(SearchByName(items, "ROOS")))
	assert.Equal(t, []string{"tulp - Geel"}, names(SearchByName(items, "Tulp")))
	assert.Empty(t, SearchByName(items, "orchidee"))
}

func TestPaginate(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i
	}
	assert.Len(t, Paginate(items, 0), PageStep)
	assert.Len(t, Paginate(items, 10), 10)
	assert.Len(t, Paginate(items, NextLimit(10)), 20)
	assert.Len(t, Paginate(items, NextLimit(20)), 25)
	assert.Equal(t, items, Paginate(items, 1000))
	assert.Equal(t, 20, NextLimit(0))
}

func TestParseSortColumnAndDirection(t *testing.T) {
	c, ok := ParseSortColumn("conversionRate")
	assert.True(t, ok)
	assert.Equal(t, SortByConversionRate, c)
	_, ok = ParseSortColumn("omzet")
	assert.False(t, ok)

	assert.Equal(t, Descending, ParseDirection("DESC"))
	assert.Equal(t, Ascending, ParseDirection(""))
	assert.Equal(t, Ascending, ParseDirection("sideways"))
}
