// Package http serves the dashboards, the JSON API and the exports.
package http

import (
	"context"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"verkoop/internal/core"
	"verkoop/internal/log"
	"verkoop/internal/middleware/ratelimit"
	"verkoop/internal/middleware/security"
	"verkoop/internal/middleware/trace"
	"verkoop/internal/services"
	"verkoop/internal/sheets"
	appweb "verkoop/web"
)

// Dashboard computes the views rendered by the pages and the API.
type Dashboard interface {
	Filters(ctx context.Context) (services.Filters, error)
	Sales(ctx context.Context, sel core.FilterSelection) (services.SalesView, error)
	Samples(ctx context.Context, q services.SamplesQuery) (services.SamplesView, error)
	Geo(ctx context.Context, sel core.FilterSelection) (services.GeoView, error)
	BestSelling(ctx context.Context, sel core.FilterSelection) ([]core.Revenue, error)
	Monthly(ctx context.Context, sel core.FilterSelection) (services.MonthlyView, error)
	Invalidate()
}

// Refresher asks the import worker for a fresh snapshot.
type Refresher interface {
	PublishRefresh(ctx context.Context, source string) (core.RefreshRequest, error)
}

var _ Dashboard = (*services.DashboardService)(nil)

// Options configures a Server. Empty passwords disable the matching gate.
type Options struct {
	DashboardPassword string
	InsightsPassword  string
	// SourceName is the import source a refresh request targets.
	SourceName   string
	CookieSecure bool
	SessionTTL   time.Duration
	// Refresher is nil when no broker is configured.
	Refresher Refresher
	// Imports is nil when the data backend keeps no import log.
	Imports sheets.ImportLog
	Logger  *log.Logger
}

type Server struct {
	http.Server
	templates    *template.Template
	dashboard    Dashboard
	opts         Options
	sessions     *sessionStore
	loginLimiter *ratelimit.Limiter
	detector     *security.Detector
	trace        *trace.Middleware
	logger       *log.Logger
	started      time.Time
	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, dashboard Dashboard, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 12 * time.Hour
	}

	mux := http.NewServeMux()
	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		dashboard:    dashboard,
		opts:         opts,
		sessions:     newSessionStore(opts.SessionTTL),
		loginLimiter: ratelimit.NewLimiter(ratelimit.LoginConfig()),
		detector:     security.NewDetector(logger),
		logger:       logger.WithComponent(log.ComponentHTTP),
		started:      time.Now(),
	}
	s.trace = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	t, err := template.New("").Funcs(templateFuncs()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.logger.Warn("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	limitLogin := s.loginLimiter.Middleware(s.detector.ExtractClientIP, s.handleLoginLimited)
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.Handle("POST /login", limitLogin(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("POST /logout", s.handleLogout)

	mux.Handle("GET /{$}", s.requireSession(s.handleSales))
	mux.Handle("GET /samples", s.requireSession(s.handleSamples))
	mux.Handle("GET /samples/export.csv", s.requireSession(s.handleExportCSV))
	mux.Handle("GET /samples/export.xlsx", s.requireSession(s.handleExportXLSX))
	mux.Handle("GET /geo", s.requireSession(s.handleGeo))
	mux.Handle("GET /best-selling", s.requireSession(s.handleBestSelling))
	mux.Handle("GET /monthly", s.requireSession(s.handleMonthly))
	mux.Handle("GET /customers", s.requireSession(s.handleCustomers))
	mux.Handle("POST /customers", limitLogin(s.requireSession(s.handleCustomersUnlock)))
	mux.Handle("POST /admin/refresh", s.requireSession(s.handleRefresh))

	mux.Handle("GET /api/filters", s.requireSession(s.apiFilters))
	mux.Handle("GET /api/sales", s.requireSession(s.apiSales))
	mux.Handle("GET /api/samples", s.requireSession(s.apiSamples))
	mux.Handle("GET /api/geo", s.requireSession(s.apiGeo))
	mux.Handle("GET /api/best-selling", s.requireSession(s.apiBestSelling))
	mux.Handle("GET /api/monthly", s.requireSession(s.apiMonthly))

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	var h http.Handler = mux
	h = security.NoStore(h)
	h = s.detector.Middleware(h)
	h = headers.Middleware(h)
	h = log.Middleware(logger, trace.RequestIDFromRequest)(h)
	h = s.trace.Middleware(h)
	s.Handler = h

	return s
}

// Shutdown stops the background cleanup and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.loginLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) authEnabled() bool {
	return s.opts.DashboardPassword != ""
}
