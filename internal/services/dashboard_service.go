package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"verkoop/internal/analytics"
	"verkoop/internal/cache"
	"verkoop/internal/core"
	"verkoop/internal/sheets"
)

// DashboardConfig configures a DashboardService.
type DashboardConfig struct {
	// SourceName keys the record cache.
	SourceName   string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	// Periods is the configured filter list; empty means the periods
	// found in the data.
	Periods     []string
	Coordinates analytics.Coordinates
	Kinds       []string
}

// DashboardService loads the record set once per cache period and builds
// every dashboard view from it. Views are recomputed on each call.
type DashboardService struct {
	source sheets.RecordSource
	config DashboardConfig
	cache  *cache.LRUCache[[]core.Record]
}

func NewDashboardService(source sheets.RecordSource, config DashboardConfig) *DashboardService {
	if config.Coordinates == nil {
		config.Coordinates = analytics.DefaultCoordinates()
	}
	if len(config.Kinds) == 0 {
		config.Kinds = analytics.DefaultWallpaperKinds
	}
	var c *cache.LRUCache[[]core.Record]
	if config.CacheTTL > 0 {
		c = cache.NewLRUCache[[]core.Record](1, config.CacheTTL)
	}
	return &DashboardService{source: source, config: config, cache: c}
}

// Cache exposes the record cache for cleanup registration; nil when
// caching is disabled.
func (s *DashboardService) Cache() *cache.LRUCache[[]core.Record] {
	return s.cache
}

// Invalidate drops the cached record set.
func (s *DashboardService) Invalidate() {
	if s.cache != nil {
		s.cache.Clear()
	}
}

// Records returns the full record set. Only non-empty loads are cached,
// so a failed fetch is retried on the next request.
func (s *DashboardService) Records(ctx context.Context) ([]core.Record, error) {
	if s.cache != nil {
		if recs, ok := s.cache.Get(s.config.SourceName); ok {
			return recs, nil
		}
	}

	loadCtx := ctx
	if s.config.FetchTimeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, s.config.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	recs, err := s.source.LoadRecords(loadCtx)
	if err != nil {
		return nil, fmt.Errorf("load records from %s: %w", s.config.SourceName, err)
	}
	if len(recs) == 0 {
		return nil, core.ErrNoRecords
	}
	slog.DebugContext(ctx, "Loaded records",
		"source", s.config.SourceName,
		"records", len(recs),
		"duration", time.Since(start))

	if s.cache != nil {
		s.cache.Set(s.config.SourceName, recs)
	}
	return recs, nil
}

func (s *DashboardService) filtered(ctx context.Context, sel core.FilterSelection) ([]core.Record, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.Filter(recs, sel), nil
}

// Filters lists the options of the filter drop-downs.
type Filters struct {
	Periods  []string `json:"periods"`
	Products []string `json:"products"`
}

func (s *DashboardService) Filters(ctx context.Context) (Filters, error) {
	recs, err := s.Records(ctx)
	if err != nil {
		return Filters{}, err
	}
	periods := s.config.Periods
	if len(periods) == 0 {
		periods = analytics.Periods(recs)
	}
	products := analytics.ProductNames(recs)
	slices.Sort(products)
	return Filters{Periods: slices.Clone(periods), Products: products}, nil
}

// SalesView is the bundle of charts on the sales dashboard.
type SalesView struct {
	Selection   core.FilterSelection `json:"selection"`
	Total       int                  `json:"total"`
	ByKind      []core.Count         `json:"byKind"`
	ByColor     []core.Count         `json:"byColor"`
	BySize      []core.Count         `json:"bySize"`
	ByCity      []core.Count         `json:"byCity"`
	ByName      []core.Count         `json:"byName"`
	ByNameColor []core.Count         `json:"byNameColor"`
}

func (s *DashboardService) Sales(ctx context.Context, sel core.FilterSelection) (SalesView, error) {
	recs, err := s.filtered(ctx, sel)
	if err != nil {
		return SalesView{}, err
	}
	n := analytics.DefaultTopN
	return SalesView{
		Selection:   sel,
		Total:       len(recs),
		ByKind:      analytics.CountByField(recs, core.FieldKind, n),
		ByColor:     analytics.CountByField(recs, core.FieldColor, n),
		BySize:      analytics.CountByField(recs, core.FieldSize, n),
		ByCity:      analytics.CountByField(recs, core.FieldCity, n),
		ByName:      analytics.CountByField(recs, core.FieldProduct, n),
		ByNameColor: analytics.CountByCombination(recs, core.FieldProduct, core.FieldColor, n),
	}, nil
}

// SamplesQuery selects the rows of the conversion table.
type SamplesQuery struct {
	Selection core.FilterSelection
	Search    string
	Sort      analytics.SortState
	Limit     int
}

// SamplesView is the conversion table with its KPI cards. Rows is the
// visible page; All is the sorted and searched set used for exports.
type SamplesView struct {
	Summary   core.ConversionSummary `json:"summary"`
	Rows      []core.ConversionItem  `json:"rows"`
	All       []core.ConversionItem  `json:"-"`
	Matched   int                    `json:"matched"`
	Limit     int                    `json:"limit"`
	HasMore   bool                   `json:"hasMore"`
	NextLimit int                    `json:"nextLimit"`
}

func (s *DashboardService) Samples(ctx context.Context, q SamplesQuery) (SamplesView, error) {
	recs, err := s.filtered(ctx, q.Selection)
	if err != nil {
		return SamplesView{}, err
	}
	items := analytics.SampleConversion(recs)
	summary := analytics.SummarizeConversion(items)

	all := analytics.SearchByName(analytics.SortConversion(items, q.Sort), q.Search)
	limit := q.Limit
	if limit <= 0 {
		limit = analytics.PageStep
	}
	rows := analytics.Paginate(all, limit)
	return SamplesView{
		Summary:   summary,
		Rows:      rows,
		All:       all,
		Matched:   len(all),
		Limit:     limit,
		HasMore:   len(rows) < len(all),
		NextLimit: analytics.NextLimit(limit),
	}, nil
}

// GeoView is the locations dashboard.
type GeoView struct {
	Top     []core.Count      `json:"top"`
	Markers []core.CityMarker `json:"markers"`
	Center  core.LatLng       `json:"center"`
}

func (s *DashboardService) Geo(ctx context.Context, sel core.FilterSelection) (GeoView, error) {
	recs, err := s.filtered(ctx, sel)
	if err != nil {
		return GeoView{}, err
	}
	counts := analytics.CitySales(recs)
	markers := analytics.CityMarkers(counts, s.config.Coordinates)
	top := counts
	if len(top) > analytics.GeoTopN {
		top = top[:analytics.GeoTopN]
	}
	return GeoView{Top: top, Markers: markers, Center: analytics.MapCenter(markers)}, nil
}

// BestSelling is the turnover ranking of wallpaper products.
func (s *DashboardService) BestSelling(ctx context.Context, sel core.FilterSelection) ([]core.Revenue, error) {
	recs, err := s.filtered(ctx, sel)
	if err != nil {
		return nil, err
	}
	return analytics.RevenueByProduct(recs, s.config.Kinds, analytics.DefaultTopN), nil
}

// MonthlyView is the turnover per month with its total.
type MonthlyView struct {
	Months []core.MonthRevenue `json:"months"`
	Total  float64             `json:"total"`
}

func (s *DashboardService) Monthly(ctx context.Context, sel core.FilterSelection) (MonthlyView, error) {
	recs, err := s.filtered(ctx, sel)
	if err != nil {
		return MonthlyView{}, err
	}
	months := analytics.RevenueByMonth(recs)
	var total float64
	for _, m := range months {
		total += m.Omzet
	}
	return MonthlyView{Months: months, Total: total}, nil
}
