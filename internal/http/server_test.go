package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
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
	err         error
	items       []core.ConversionItem
	lastSel     core.FilterSelection
	lastQuery   services.SamplesQuery
	invalidated int
}

func (f *fakeDashboard) Filters(ctx context.Context) (services.Filters, error) {
	if f.err != nil {
		return services.Filters{}, f.err
	}
	return services.Filters{Periods: []string{"januari 2024", "februari 2024"}, Products: []string{"Roos"}}, nil
}

func (f *fakeDashboard) Sales(ctx context.Context, sel core.FilterSelection) (services.SalesView, error) {
	f.lastSel = sel
	if f.err != nil {
		return services.SalesView{}, f.err
	}
	return services.SalesView{
		Selection: sel,
		Total:     3,
		ByKind:    []core.Count{{Name: "standaard behang", Value: 2}, {Name: "staal", Value: 1}},
	}, nil
}

func (f *fakeDashboard) Samples(ctx context.Context, q services.SamplesQuery) (services.SamplesView, error) {
	f.lastQuery = q
	if f.err != nil {
		return services.SamplesView{}, f.err
	}
	all := analytics.SearchByName(analytics.SortConversion(f.items, q.Sort), q.Search)
	rows := analytics.Paginate(all, q.Limit)
	return services.SamplesView{
		Summary:   analytics.SummarizeConversion(f.items),
		Rows:      rows,
		All:       all,
		Matched:   len(all),
		Limit:     q.Limit,
		HasMore:   len(rows) < len(all),
		NextLimit: analytics.NextLimit(q.Limit),
	}, nil
}

func (f *fakeDashboard) Geo(ctx context.Context, sel core.FilterSelection) (services.GeoView, error) {
	if f.err != nil {
		return services.GeoView{}, f.err
	}
	return services.GeoView{
		Top:     []core.Count{{Name: "Utrecht", Value: 2}},
		Markers: []core.CityMarker{{Name: "Utrecht", Value: 2, LatLng: core.LatLng{Lat: 52.09, Lng: 5.12}}},
		Center:  core.LatLng{Lat: 52.09, Lng: 5.12},
	}, nil
}

func (f *fakeDashboard) BestSelling(ctx context.Context, sel core.FilterSelection) ([]core.Revenue, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []core.Revenue{{Name: "Roos - Rood (standaard behang)", Omzet: 1234.5, Aantal: 2}}, nil
}

func (f *fakeDashboard) Monthly(ctx context.Context, sel core.FilterSelection) (services.MonthlyView, error) {
	if f.err != nil {
		return services.MonthlyView{}, f.err
	}
	return services.MonthlyView{Months: []core.MonthRevenue{{Month: "jan", MonthIndex: 1, Omzet: 100}}, Total: 100}, nil
}

func (f *fakeDashboard) Invalidate() { f.invalidated++ }

type fakeRefresher struct {
	err     error
	sources []string
}

func (f *fakeRefresher) PublishRefresh(ctx context.Context, source string) (core.RefreshRequest, error) {
	if f.err != nil {
		return core.RefreshRequest{}, f.err
	}
	f.sources = append(f.sources, source)
	return core.RefreshRequest{ID: "req-1", Source: source, RequestedAt: time.Now()}, nil
}

type fakeImportLog struct {
	run core.ImportRun
	ok  bool
	err error
}

func (f fakeImportLog) RecordImport(ctx context.Context, run core.ImportRun) error { return nil }
func (f fakeImportLog) LastImport(ctx context.Context) (core.ImportRun, bool, error) {
	return f.run, f.ok, f.err
}

func conversionItems() []core.ConversionItem {
	return []core.ConversionItem{
		{Name: "Roos - Rood", Samples: 4, Sales: 2, ConversionRate: 50, SalesByType: []core.TypeCount{{Type: "standaard behang", Count: 2}}},
		{Name: "Tulp - Geel", Samples: 2, Sales: 2, ConversionRate: 100, SalesByType: []core.TypeCount{{Type: "custom behang", Count: 2}}},
		{Name: "Lelie - Wit", Samples: 1, Sales: 0, ConversionRate: 0, SalesByType: []core.TypeCount{}},
	}
}

func newTestServer(t *testing.T, dash Dashboard, opts Options) *Server {
	t.Helper()
	srv := NewServer(":0", dash, opts)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func get(t *testing.T, srv *Server, target string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func postForm(t *testing.T, srv *Server, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func sessionFrom(t *testing.T, rr *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == sessionCookie {
			return c
		}
	}
	t.Fatalf("no %s cookie set", sessionCookie)
	return nil
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{
		Imports: fakeImportLog{ok: true, run: core.ImportRun{Source: "sheets", Records: 12, StartedAt: time.Now(), FinishedAt: time.Now()}},
	})

	rr := get(t, srv, "/healthz")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"status":"ok"`)

	rr = get(t, srv, "/readyz")
	require.Equal(t, http.StatusOK, rr.Code)
	var body struct {
		Status string         `json:"status"`
		Checks map[string]any `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ready", body.Status)
	assert.Equal(t, "ok", body.Checks["templates"])
	last, ok := body.Checks["import_log"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "sheets", last["source"])
	assert.Equal(t, true, last["succeeded"])
}

func TestReady_ImportLogError(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{Imports: fakeImportLog{err: errors.New("db locked")}})
	rr := get(t, srv, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), "db locked")
}

func TestSalesPage(t *testing.T) {
	dash := &fakeDashboard{}
	srv := newTestServer(t, dash, Options{})

	rr := get(t, srv, "/?period=januari+2024")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.Contains(t, body, "Verkoopoverzicht")
	assert.Contains(t, body, "standaard behang")
	assert.Contains(t, body, `<option value="januari 2024" selected>`)
	assert.Equal(t, "januari 2024", dash.lastSel.Period)

	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
}

func TestSalesPage_AllPeriodsLabel(t *testing.T) {
	dash := &fakeDashboard{}
	srv := newTestServer(t, dash, Options{})

	get(t, srv, "/?period=Alle+maanden")
	assert.True(t, dash.lastSel.IsAllPeriods())
}

func TestPages_NoDataOnLoadFailure(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{err: core.ErrNoRecords}, Options{})

	for _, path := range []string{"/", "/samples", "/geo", "/best-selling", "/monthly"} {
		t.Run(path, func(t *testing.T) {
			rr := get(t, srv, path)
			assert.Equal(t, http.StatusOK, rr.Code)
			assert.Contains(t, rr.Body.String(), noDataMessage)
		})
	}
}

func TestUnknownPathIsNotFound(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{})
	rr := get(t, srv, "/nope")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestSamplesPage(t *testing.T) {
	dash := &fakeDashboard{items: conversionItems()}
	srv := newTestServer(t, dash, Options{})

	rr := get(t, srv, "/samples?sort=conversionRate&dir=desc&q=-&rows=2")
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()

	assert.Equal(t, analytics.SortState{Column: analytics.SortByConversionRate, Direction: analytics.Descending}, dash.lastQuery.Sort)
	assert.Equal(t, "-", dash.lastQuery.Search)
	assert.Equal(t, 2, dash.lastQuery.Limit)

	assert.Less(t, strings.Index(body, "Tulp - Geel"), strings.Index(body, "Roos - Rood"))
	assert.Contains(t, body, "100.00%")
	assert.Contains(t, body, "2 van 3 getoond")
	assert.Contains(t, body, "Meer laden")
	assert.Contains(t, body, "rows=12")
	assert.Contains(t, body, "standaard behang: 2")
}

func TestSamplesPage_BestSampleWithoutData(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{})
	rr := get(t, srv, "/samples")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Geen data")
	assert.NotContains(t, rr.Body.String(), "Meer laden")
}

func TestExportCSV(t *testing.T) {
	dash := &fakeDashboard{items: conversionItems()}
	srv := newTestServer(t, dash, Options{})

	rr := get(t, srv, "/samples/export.csv?sort=samples&dir=asc&rows=1")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="staaltjes_overzicht.csv"`, rr.Header().Get("Content-Disposition"))
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(rr.Body.String(), "\n")
	require.Len(t, lines, 4, "export ignores the row limit")
	assert.Equal(t, "Naam,Staaltjes,Verkoop,Conversie (%),Verkoop details", lines[0])
	assert.Equal(t, "Lelie - Wit,1,0,0.00,", lines[1])
	assert.Equal(t, "Roos - Rood,4,2,50.00,standaard behang: 2", lines[3])
}

func TestExportXLSX(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{items: conversionItems()}, Options{})

	rr := get(t, srv, "/samples/export.xlsx")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, `attachment; filename="staaltjes_overzicht.xlsx"`, rr.Header().Get("Content-Disposition"))
	assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"), "xlsx is a zip archive")
}

func TestExport_LoadFailure(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{err: errors.New("sheet down")}, Options{})
	rr := get(t, srv, "/samples/export.csv")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestAPI(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{items: conversionItems()}, Options{})

	rr := get(t, srv, "/api/samples?sort=name")
	require.Equal(t, http.StatusOK, rr.Code)
	var samples struct {
		Rows    []core.ConversionItem  `json:"rows"`
		Summary core.ConversionSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &samples))
	require.Len(t, samples.Rows, 3)
	assert.Equal(t, "Lelie - Wit", samples.Rows[0].Name)
	assert.Equal(t, "Tulp - Geel", samples.Summary.BestSample)

	rr = get(t, srv, "/api/filters")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"periods":["januari 2024","februari 2024"],"products":["Roos"]}`, rr.Body.String())

	for _, path := range []string{"/api/sales", "/api/geo", "/api/best-selling", "/api/monthly"} {
		rr := get(t, srv, path)
		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Header().Get("Content-Type"), "application/json", path)
	}
}

func TestAPI_LoadFailure(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{err: errors.New("timeout")}, Options{})
	rr := get(t, srv, "/api/sales")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Contains(t, rr.Body.String(), noDataMessage)
}

func TestLoginFlow(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{DashboardPassword: "geheim"})

	rr := get(t, srv, "/")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/login", rr.Header().Get("Location"))

	rr = get(t, srv, "/api/sales")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = postForm(t, srv, "/login", url.Values{"password": {"fout"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Onjuist wachtwoord.")

	rr = postForm(t, srv, "/login", url.Values{"password": {"geheim"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	cookie := sessionFrom(t, rr)
	assert.True(t, cookie.HttpOnly)

	rr = get(t, srv, "/", cookie)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = postForm(t, srv, "/logout", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	rr = get(t, srv, "/", cookie)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{DashboardPassword: "geheim"})

	var rr *httptest.ResponseRecorder
	for i := 0; i < 11; i++ {
		rr = postForm(t, srv, "/login", url.Values{"password": {"fout"}})
	}
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Contains(t, rr.Body.String(), "Te veel pogingen")
}

func TestLoginDisabledWithoutPassword(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{})
	rr := get(t, srv, "/login")
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))
}

func TestCustomersGate(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{InsightsPassword: "klant"})

	rr := get(t, srv, "/customers")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Beveiligde Sectie")

	rr = postForm(t, srv, "/customers", url.Values{"password": {"fout"}})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Contains(t, rr.Body.String(), "Onjuist wachtwoord. Probeer het opnieuw!")

	rr = postForm(t, srv, "/customers", url.Values{"password": {"klant"}})
	require.Equal(t, http.StatusSeeOther, rr.Code)
	cookie := sessionFrom(t, rr)

	rr = get(t, srv, "/customers", cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Klantinzichten Dashboard")
}

func TestRefresh(t *testing.T) {
	t.Run("without broker only invalidates", func(t *testing.T) {
		dash := &fakeDashboard{}
		srv := newTestServer(t, dash, Options{})

		req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
		req.Header.Set("Accept", "application/json")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusAccepted, rr.Code)
		assert.Equal(t, 1, dash.invalidated)
		assert.JSONEq(t, `{"invalidated":true,"queued":false}`, rr.Body.String())
	})

	t.Run("with broker publishes", func(t *testing.T) {
		dash := &fakeDashboard{}
		ref := &fakeRefresher{}
		srv := newTestServer(t, dash, Options{Refresher: ref, SourceName: "sheets"})

		req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
		req.Header.Set("Referer", "/samples?q=roos")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)

		assert.Equal(t, http.StatusSeeOther, rr.Code)
		assert.Equal(t, "/samples?q=roos", rr.Header().Get("Location"))
		assert.Equal(t, []string{"sheets"}, ref.sources)
	})

	t.Run("publish failure", func(t *testing.T) {
		srv := newTestServer(t, &fakeDashboard{}, Options{Refresher: &fakeRefresher{err: errors.New("circuit breaker is open")}})
		req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	})

	t.Run("foreign referer", func(t *testing.T) {
		srv := newTestServer(t, &fakeDashboard{}, Options{})
		req := httptest.NewRequest(http.MethodPost, "/admin/refresh", nil)
		req.Header.Set("Referer", "https://evil.example/")
		rr := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rr, req)
		assert.Equal(t, "/", rr.Header().Get("Location"))
	})
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, &fakeDashboard{}, Options{})
	rr := get(t, srv, "/static/style.css")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}
