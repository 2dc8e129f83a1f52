package cli

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verkoop/internal/analytics"
	"verkoop/internal/core"
	"verkoop/internal/services"
)

type fakeDashboard struct {
	err       error
	items     []core.ConversionItem
	lastQuery services.SamplesQuery
	lastSel   core.FilterSelection
}

func (f *fakeDashboard) Filters(context.Context) (services.Filters, error) {
	return services.Filters{Periods: []string{"mei 2024"}, Products: []string{"Roos", "Tulp"}}, f.err
}

func (f *fakeDashboard) Sales(_ context.Context, sel core.FilterSelection) (services.SalesView, error) {
	f.lastSel = sel
	return services.SalesView{
		Selection: sel,
		Total:     3,
		ByKind:    []core.Count{{Name: "behang", Value: 2}, {Name: "staal", Value: 1}},
	}, f.err
}

func (f *fakeDashboard) Samples(_ context.Context, q services.SamplesQuery) (services.SamplesView, error) {
	f.lastQuery = q
	all := analytics.SearchByName(analytics.SortConversion(f.items, q.Sort), q.Search)
	limit := q.Limit
	if limit <= 0 {
		limit = analytics.PageStep
	}
	return services.SamplesView{
		Summary: analytics.SummarizeConversion(f.items),
		Rows:    analytics.Paginate(all, limit),
		All:     all,
		Matched: len(all),
	}, f.err
}

func (f *fakeDashboard) Geo(_ context.Context, sel core.FilterSelection) (services.GeoView, error) {
	f.lastSel = sel
	return services.GeoView{
		Top:     []core.Count{{Name: "Utrecht", Value: 4}},
		Markers: []core.CityMarker{{Name: "Utrecht", Value: 4, LatLng: core.LatLng{Lat: 52.0907, Lng: 5.1214}}},
		Center:  core.LatLng{Lat: 52.0907, Lng: 5.1214},
	}, f.err
}

func (f *fakeDashboard) BestSelling(_ context.Context, sel core.FilterSelection) ([]core.Revenue, error) {
	f.lastSel = sel
	return []core.Revenue{{Name: "Roos - Rood - behang", Omzet: 120.5, Aantal: 3}}, f.err
}

func (f *fakeDashboard) Monthly(_ context.Context, sel core.FilterSelection) (services.MonthlyView, error) {
	f.lastSel = sel
	return services.MonthlyView{
		Months: []core.MonthRevenue{{Month: "Januari", MonthIndex: 1, Omzet: 100}, {Month: "Februari", MonthIndex: 2, Omzet: 50}},
		Total:  150,
	}, f.err
}

func testItems() []core.ConversionItem {
	return []core.ConversionItem{
		{Name: "Roos - Rood", Samples: 2, Sales: 1, ConversionRate: 50},
		{Name: "Tulp - Geel", Samples: 4, Sales: 1, ConversionRate: 25},
		{Name: "Lelie - Wit", Samples: 1, Sales: 0, ConversionRate: 0},
	}
}

func execute(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd(app)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestFiltersCmd(t *testing.T) {
	out, err := execute(t, &App{Dashboard: &fakeDashboard{}}, "filters")
	require.NoError(t, err)
	assert.Contains(t, out, "Periodes\nmei 2024\n")
	assert.Contains(t, out, "Producten\nRoos\nTulp\n")
}

func TestReportSales_PassesSelection(t *testing.T) {
	dash := &fakeDashboard{}
	out, err := execute(t, &App{Dashboard: dash}, "report", "sales", "--period", "Alle maanden", "--product", " Roos ")
	require.NoError(t, err)

	assert.Equal(t, core.AllPeriods, dash.lastSel.Period)
	assert.Equal(t, "Roos", dash.lastSel.Product)
	assert.Contains(t, out, "Totaal verkopen: 3")
	assert.Contains(t, out, "behang")
	assert.Contains(t, out, "Geen data", "empty sections are marked")
}

func TestReportSamples(t *testing.T) {
	dash := &fakeDashboard{items: testItems()}
	out, err := execute(t, &App{Dashboard: dash}, "report", "samples", "--sort", "conversionRate", "--dir", "desc", "--rows", "2")
	require.NoError(t, err)

	assert.Equal(t, analytics.SortByConversionRate, dash.lastQuery.Sort.Column)
	assert.Equal(t, analytics.Descending, dash.lastQuery.Sort.Direction)
	assert.Equal(t, 2, dash.lastQuery.Limit)

	assert.Contains(t, out, "Beste staal: Roos - Rood")
	assert.Less(t, strings.Index(out, "Roos - Rood  "), strings.Index(out, "Tulp - Geel"))
	assert.NotContains(t, out, "Lelie - Wit")
	assert.Contains(t, out, "2 van 3 getoond")
}

func TestReportSamples_UnknownSort(t *testing.T) {
	_, err := execute(t, &App{Dashboard: &fakeDashboard{}}, "report", "samples", "--sort", "price")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown sort column "price"`)
}

func TestReportSamples_NoBest(t *testing.T) {
	out, err := execute(t, &App{Dashboard: &fakeDashboard{}}, "report", "samples")
	require.NoError(t, err)
	assert.Contains(t, out, "Beste staal: Geen data")
}

func TestReportGeoBestSellingMonthly(t *testing.T) {
	app := &App{Dashboard: &fakeDashboard{}}

	out, err := execute(t, app, "report", "geo")
	require.NoError(t, err)
	assert.Contains(t, out, "Utrecht")
	assert.Contains(t, out, "52.0907")

	out, err = execute(t, app, "report", "best-selling")
	require.NoError(t, err)
	assert.Contains(t, out, "Roos - Rood - behang")
	assert.Contains(t, out, "120.50")

	out, err = execute(t, app, "report", "monthly")
	require.NoError(t, err)
	assert.Less(t, strings.Index(out, "Januari"), strings.Index(out, "Februari"))
	assert.Contains(t, out, "Totaal: 150.00")
}

func TestReport_DashboardError(t *testing.T) {
	boom := errors.New("source down")
	_, err := execute(t, &App{Dashboard: &fakeDashboard{err: boom}}, "report", "monthly")
	assert.ErrorIs(t, err, boom)
}

func TestExportCmd_CSVToStdout(t *testing.T) {
	dash := &fakeDashboard{items: testItems()}
	out, err := execute(t, &App{Dashboard: dash}, "export", "--out", "-", "-q", "l", "--sort", "name")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "Naam,Staaltjes"))
	assert.True(t, strings.HasPrefix(lines[1], "Lelie - Wit,"))
	assert.True(t, strings.HasPrefix(lines[2], "Tulp - Geel,"))
	assert.Equal(t, "l", dash.lastQuery.Search)
}

func TestExportCmd_XLSXFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	out, err := execute(t, &App{Dashboard: &fakeDashboard{items: testItems()}}, "export", "-f", "xlsx", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 3 rows to "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(data[:2]))
}

func TestExportCmd_UnknownFormat(t *testing.T) {
	_, err := execute(t, &App{Dashboard: &fakeDashboard{}}, "export", "-f", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestImportCmd(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		_, err := execute(t, &App{Dashboard: &fakeDashboard{}}, "import")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no snapshot store")
	})

	t.Run("runs import", func(t *testing.T) {
		start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		app := &App{
			Dashboard: &fakeDashboard{},
			Import: func(context.Context) (core.ImportRun, error) {
				return core.ImportRun{ID: "run-1", Source: "sheets", Records: 42, StartedAt: start, FinishedAt: start.Add(1500 * time.Millisecond)}, nil
			},
		}
		out, err := execute(t, app, "import")
		require.NoError(t, err)
		assert.Equal(t, "Imported 42 records from sheets in 1.5s (run run-1)\n", out)
	})

	t.Run("import error", func(t *testing.T) {
		boom := errors.New("quota")
		app := &App{
			Dashboard: &fakeDashboard{},
			Import:    func(context.Context) (core.ImportRun, error) { return core.ImportRun{}, boom },
		}
		_, err := execute(t, app, "import")
		assert.ErrorIs(t, err, boom)
	})
}

func TestImportCmd_Workbook(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("PK-workbook"), 0o600))

	var got []byte
	app := &App{
		Dashboard: &fakeDashboard{},
		ImportWorkbook: func(_ context.Context, r io.Reader) (core.ImportRun, error) {
			var err error
			got, err = io.ReadAll(r)
			return core.ImportRun{ID: "run-2", Source: "excel", Records: 7}, err
		},
	}
	out, err := execute(t, app, "import", "--file", path)
	require.NoError(t, err)
	assert.Equal(t, "PK-workbook", string(got))
	assert.Contains(t, out, "Imported 7 records from excel")

	_, err = execute(t, app, "import", "--file", filepath.Join(t.TempDir(), "missing.xlsx"))
	require.Error(t, err)

	_, err = execute(t, &App{Dashboard: &fakeDashboard{}}, "import", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "workbook import is not configured")
}
