package analytics

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"verkoop/internal/core"
)

func exportFixture() []core.ConversionItem {
	return []core.ConversionItem{
		{Name: "Roos - Rood", Samples: 1, Sales: 2, ConversionRate: 200, SalesByType: []core.TypeCount{{Type: "standaard behang", Count: 2}}},
		{Name: "Tulp - Geel", Samples: 3, Sales: 1, ConversionRate: 100.0 / 3, SalesByType: []core.TypeCount{{Type: "behangcirkel", Count: 1}}},
		{Name: "Lelie - Wit", Samples: 1, SalesByType: []core.TypeCount{}},
	}
}

func TestWriteConversionCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConversionCSV(&buf, exportFixture()))
	want := "Naam,Staaltjes,Verkoop,Conversie (%),Verkoop details\n" +
		"Roos - Rood,1,2,200.00,standaard behang: 2\n" +
		"Tulp - Geel,3,1,33.33,behangcirkel: 1\n" +
		"Lelie - Wit,1,0,0.00,"
	assert.Equal(t, want, buf.String())
}

func TestWriteConversionCSVDoesNotQuote(t *testing.T) {
	var buf bytes.Buffer
	items := []core.ConversionItem{{Name: "Roos, groot - Rood", Samples: 1, SalesByType: []core.TypeCount{{Type: "a", Count: 1}, {Type: "b", Count: 2}}}}
	require.NoError(t, WriteConversionCSV(&buf, items))
	assert.Contains(t, buf.String(), "\nRoos, groot - Rood,1,0,0.00,a: 1 | b: 2")
}

func TestWriteConversionCSVHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConversionCSV(&buf, nil))
	assert.Equal(t, "Naam,Staaltjes,Verkoop,Conversie (%),Verkoop details", buf.String())
}

func TestWriteConversionXLSX(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteConversionXLSX(&buf, exportFixture()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Staaltjes"}, f.GetSheetList())
	rows, err := f.GetRows("Staaltjes")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, ConversionHeader, rows[0])
	assert.Equal(t, []string{"Roos - Rood", "1", "2", "200", "standaard behang: 2"}, rows[1])
	assert.Equal(t, "33.33", rows[2][3])
}
