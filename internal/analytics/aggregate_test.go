package analytics

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verkoop/internal/core"
)

func TestCountByField(t *testing.T) {
	records := []core.Record{
		rec("Kleur", "Rood"),
		rec("Kleur", "Blauw"),
		rec("Kleur", "Rood"),
		rec("Kleur", ""),
		rec("Naam", "zonder kleur"),
		rec("Kleur", "Groen"),
		rec("Kleur", "Blauw"),
		rec("Kleur", "Rood"),
	}
	got := CountByField(records, core.FieldColor, 0)
	assert.Equal(t, []core.Count{
		{Name: "Rood", Value: 3},
		{Name: "Blauw", Value: 2},
		{Name: "Groen", Value: 1},
	}, got)
}

func TestCountByFieldTiesKeepFirstSeenOrder(t *testing.T) {
	records := []core.Record{
		rec("Afmeting", "M"),
		rec("Afmeting", "S"),
		rec("Afmeting", "L"),
		rec("Afmeting", "S"),
		rec("Afmeting", "M"),
		rec("Afmeting", "L"),
	}
	got := CountByField(records, core.FieldSize, 0)
	assert.Equal(t, []core.Count{{Name: "M", Value: 2}, {Name: "S", Value: 2}, {Name: "L", Value: 2}}, got)
}

func TestCountByFieldSortedAndSumsToPresentRecords(t *testing.T) {
	var records []core.Record
	cities := []string{"Utrecht", "", "Amsterdam", "Utrecht", "Den Haag", "", "Amsterdam", "Utrecht", "Zwolle"}
	present := 0
	for _, c := range cities {
		records = append(records, rec("Plaatsnaam", c))
		if c != "" {
			present++
		}
	}

	got := CountByField(records, core.FieldCity, 0)
	sum := 0
	for i, c := range got {
		sum += c.Value
		if i > 0 {
			assert.GreaterOrEqual(t, got[i-1].Value, c.Value, "not non-increasing at %d", i)
		}
	}
	assert.Equal(t, present, sum)
}

func TestCountByFieldTopN(t *testing.T) {
	var records []core.Record
	for g := 0; g < 8; g++ {
		for n := 0; n < 8-g; n++ {
			records = append(records, rec("Naam", fmt.Sprintf("P%d", g)))
		}
	}
	got := CountByField(records, core.FieldProduct, DefaultTopN)
	require.Len(t, got, 5)
	for i, c := range got {
		assert.Equal(t, fmt.Sprintf("P%d", i), c.Name)
		assert.Equal(t, 8-i, c.Value)
	}

	assert.Len(t, CountByField(records, core.FieldProduct, 0), 8)
	assert.Len(t, CountByField(records, core.FieldProduct, 20), 8)
}

func TestCountByFieldUnknownField(t *testing.T) {
	got := CountByField([]core.Record{rec("Naam", "x")}, core.FieldName("bogus"), 5)
	assert.Empty(t, got)
}

func TestCountByFieldNumericAndStringCollide(t *testing.T) {
	records := []core.Record{rec("Afmeting", 5.0), rec("Afmeting", "5")}
	assert.Equal(t, []core.Count{{Name: "5", Value: 2}}, CountByField(records, core.FieldSize, 0))
}

func TestCountByCombination(t *testing.T) {
	records := []core.Record{
		rec("Naam", "Roos", "Kleur", "Rood"),
		rec("Naam", "Roos", "Kleur", "Wit"),
		rec("Naam", "Roos", "Kleur", "Rood"),
		rec("Naam", "Roos"),
		rec("Kleur", "Rood"),
		rec("Naam", "Tulp", "Kleur", "Geel"),
	}
	got := CountByCombination(records, core.FieldProduct, core.FieldColor, 2)
	assert.Equal(t, []core.Count{
		{Name: "Roos (Rood)", Value: 2},
		{Name: "Roos (Wit)", Value: 1},
	}, got)
}

func TestCountByCombinationDoesNotCollideOnSeparators(t *testing.T) {
	records := []core.Record{
		rec("Naam", "a (b", "Kleur", "c)"),
		rec("Naam", "a", "Kleur", "b) (c"),
	}
	got := CountByCombination(records, core.FieldProduct, core.FieldColor, 0)
	assert.Len(t, got, 2)
}

func TestRevenueByProduct(t *testing.T) {
	records := []core.Record{
		rec("Soort", "standaard behang", "Naam", "A", "Kleur", "Blauw", "Prijs incl. BTW", 10.0),
		rec("Soort", "staaltje", "Naam", "A", "Kleur", "Blauw", "Prijs incl. BTW", 5.0),
	}
	got := RevenueByProduct(records, []string{"standaard behang"}, DefaultTopN)
	assert.Equal(t, []core.Revenue{{Name: "A - Blauw (standaard behang)", Omzet: 10, Aantal: 1}}, got)
}

func TestRevenueByProductNonNumericPriceStillCounts(t *testing.T) {
	records := []core.Record{
		rec("Soort", "behangcirkel", "Naam", "B", "Kleur", "Groen", "Prijs incl. BTW", "n.v.t."),
		rec("Soort", "behangcirkel", "Naam", "B", "Kleur", "Groen", "Prijs incl. BTW", "€ 12,50"),
		rec("Soort", "behangcirkel", "Naam", "B", "Kleur", "Groen"),
		rec("Soort", "custom behang", "Naam", "C", "Kleur", "Wit", "Prijs incl. BTW", 99.0),
		rec("Soort", "custom behang", "Naam", "", "Kleur", "Wit", "Prijs incl. BTW", 1000.0),
	}
	got := RevenueByProduct(records, DefaultWallpaperKinds, 0)
	assert.Equal(t, []core.Revenue{
		{Name: "C - Wit (custom behang)", Omzet: 99, Aantal: 1},
		{Name: "B - Groen (behangcirkel)", Omzet: 12.5, Aantal: 3},
	}, got)
}

func TestRevenueByProductTopN(t *testing.T) {
	var records []core.Record
	for i := 1; i <= 7; i++ {
		records = append(records, rec("Soort", "standaard behang", "Naam", fmt.Sprintf("P%d", i), "Kleur", "X", "Prijs incl. BTW", float64(i)))
	}
	got := RevenueByProduct(records, DefaultWallpaperKinds, DefaultTopN)
	require.Len(t, got, 5)
	assert.Equal(t, "P7 - X (standaard behang)", got[0].Name)
	assert.Equal(t, "P3 - X (standaard behang)", got[4].Name)
}

func TestSampleConversion(t *testing.T) {
	records := []core.Record{
		rec("Naam", "Roos", "Kleur", "Rood", "Soort", "staaltje", "Naam Klant", "Jan"),
		rec("Naam", "Roos", "Kleur", "Rood", "Soort", "standaard behang", "Naam Klant", "Jan"),
		rec("Naam", "Roos", "Kleur", "Rood", "Soort", "standaard behang", "Naam Klant", "Piet"),
	}
	got := SampleConversion(records)
	require.Len(t, got, 1)
	assert.Equal(t, core.ConversionItem{
		Name:           "Roos - Rood",
		Samples:        1,
		Sales:          2,
		ConversionRate: 200,
		SalesByType:    []core.TypeCount{{Type: "standaard behang", Count: 2}},
	}, got[0])
}

func TestSampleConversionSkipsIncompleteRecords(t *testing.T) {
	records := []core.Record{
		rec("Naam", "Roos", "Kleur", "Rood", "Soort", "staaltje"),
		rec("Naam", "Roos", "Soort", "staaltje", "Naam Klant", "Jan"),
		rec("Kleur", "Rood", "Soort", "staaltje", "Naam Klant", "Jan"),
		rec("Naam", "Roos", "Kleur", "Rood", "Naam Klant", "Jan"),
	}
	assert.Empty(t, SampleConversion(records))
}

func TestSampleConversionRate(t *testing.T) {
	records := []core.Record{
		sale("Roos", "Rood", "staaltje"),
		sale("Tulp", "Geel", "custom behang"),
		sale("Roos", "Rood", "staaltje"),
		sale("Roos", "Rood", "behangcirkel"),
		sale("Tulp", "Geel", "behangcirkel"),
		sale("Lelie", "Wit", "staaltje"),
		sale("Roos", "Rood", "custom behang"),
		sale("Roos", "Rood", "behangcirkel"),
		sale("Roos", "Rood", "staaltje"),
	}
	got := SampleConversion(records)
	require.Len(t, got, 3)

	for _, it := range got {
		if it.Samples == 0 {
			assert.Zero(t, it.ConversionRate, it.Name)
			continue
		}
		want := float64(it.Sales) / float64(it.Samples) * 100
		assert.InDelta(t, want, it.ConversionRate, 1e-9, it.Name)
	}

	roos := got[0]
	assert.Equal(t, "Roos - Rood", roos.Name)
	assert.Equal(t, 3, roos.Samples)
	assert.Equal(t, 3, roos.Sales)
	assert.Equal(t, []core.TypeCount{{Type: "behangcirkel", Count: 2}, {Type: "custom behang", Count: 1}}, roos.SalesByType)
	assert.Equal(t, "behangcirkel: 2 | custom behang: 1", roos.SalesDetails())

	tulp := got[1]
	assert.Equal(t, "Tulp - Geel", tulp.Name)
	assert.Zero(t, tulp.ConversionRate)
	assert.False(t, math.IsInf(tulp.ConversionRate, 0))

	lelie := got[2]
	assert.Equal(t, 1, lelie.Samples)
	assert.Zero(t, lelie.Sales)
	assert.NotNil(t, lelie.SalesByType)
	assert.Empty(t, lelie.SalesByType)
}

func TestSummarizeConversion(t *testing.T) {
	items := []core.ConversionItem{
		{Name: "A", Samples: 2, Sales: 1, ConversionRate: 50},
		{Name: "B", Samples: 1, Sales: 2, ConversionRate: 200},
		{Name: "C", Samples: 1, Sales: 2, ConversionRate: 200},
		{Name: "D", Samples: 0, Sales: 3, ConversionRate: 0},
	}
	s := SummarizeConversion(items)
	assert.Equal(t, 4, s.TotalSamples)
	assert.Equal(t, 8, s.TotalSales)
	assert.InDelta(t, 200.0, s.AverageRate, 1e-9)
	assert.True(t, s.HasBest)
	assert.Equal(t, "B", s.BestSample)
}

func TestSummarizeConversionEmpty(t *testing.T) {
	s := SummarizeConversion(nil)
	assert.Equal(t, core.ConversionSummary{}, s)
	assert.False(t, s.HasBest)
}
