package http

import (
	"context"
	"net/http"
	"time"

	"verkoop/internal/analytics"
	"verkoop/internal/core"
	"verkoop/internal/log"
	"verkoop/internal/services"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether templates are loaded and, when an import log
// is configured, what the last import did. A failed last import does not
// make the service unready: the previous snapshot is still served.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status = "not_ready"
		httpStatus = http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.opts.Imports != nil {
		run, ok, err := s.opts.Imports.LastImport(ctx)
		switch {
		case err != nil:
			checks["import_log"] = "failed: " + err.Error()
			status = "not_ready"
			httpStatus = http.StatusServiceUnavailable
		case !ok:
			checks["import_log"] = "no imports yet"
		default:
			last := map[string]any{
				"source":     run.Source,
				"records":    run.Records,
				"started_at": run.StartedAt.Format(time.RFC3339),
				"succeeded":  run.Succeeded(),
			}
			if run.Error != "" {
				last["error"] = run.Error
			}
			checks["import_log"] = last
		}
	}

	checks["sessions"] = s.sessions.size()
	checks["rate_limiter"] = map[string]any{
		"active_clients": s.loginLimiter.ActiveClients(),
		"hits":           s.loginLimiter.GetMetrics().TotalHits,
	}
	checks["security"] = map[string]any{
		"suspicious_requests": s.detector.GetMetrics().SuspiciousRequests,
	}
	stats := s.trace.Stats()
	checks["requests"] = map[string]any{
		"total":         stats.Requests,
		"server_errors": stats.ServerErrors,
	}

	writeJSON(w, httpStatus, map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", pageData{Page: "login"})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.authEnabled() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	logger := log.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	if err := checkPassword(r.PostForm.Get("password"), s.opts.DashboardPassword); err != nil {
		logger.WarnContext(r.Context(), "Login failed",
			log.FieldOperation, log.OpLogin,
			log.FieldClientIP, s.detector.ExtractClientIP(r),
			log.FieldError, err)
		s.renderStatus(w, r, http.StatusUnauthorized, "login.html", pageData{Page: "login", Message: "Onjuist wachtwoord."})
		return
	}
	s.setSessionCookie(w, s.sessions.create())
	logger.InfoContext(r.Context(), "Login succeeded", log.FieldOperation, log.OpLogin)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLoginLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	s.renderStatus(w, r, http.StatusTooManyRequests, "login.html", pageData{Page: "login", Message: "Te veel pogingen. Probeer het later opnieuw."})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := sessionToken(r); token != "" {
		s.sessions.destroy(token)
	}
	s.clearSessionCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// page assembles the shared header data. A failed filter load leaves the
// drop-downs with just the "all" option.
func (s *Server) page(r *http.Request, name string, sel core.FilterSelection, showProduct bool) pageData {
	pd := pageData{
		Page:      name,
		Auth:      s.authEnabled(),
		Refresh:   true,
		Selection: sel,
		Filters:   filterForm{ShowProduct: showProduct},
	}
	if f, err := s.dashboard.Filters(r.Context()); err == nil {
		pd.Filters.Periods = f.Periods
		pd.Filters.Products = f.Products
	}
	return pd
}

type salesPage struct {
	pageData
	View        services.SalesView
	ByKind      []bar
	ByColor     []bar
	BySize      []bar
	ByCity      []bar
	ByName      []bar
	ByNameColor []bar
}

func (s *Server) handleSales(w http.ResponseWriter, r *http.Request) {
	sel := parseSelection(r.URL.Query())
	view, err := s.dashboard.Sales(r.Context(), sel)
	if err != nil {
		s.noData(w, r, "sales", err)
		return
	}
	s.render(w, r, "sales.html", salesPage{
		pageData:    s.page(r, "sales", sel, false),
		View:        view,
		ByKind:      countBars(view.ByKind),
		ByColor:     countBars(view.ByColor),
		BySize:      countBars(view.BySize),
		ByCity:      countBars(view.ByCity),
		ByName:      countBars(view.ByName),
		ByNameColor: countBars(view.ByNameColor),
	})
}

// sortLink is a column header of the conversion table.
type sortLink struct {
	Label  string
	URL    string
	Active bool
	Arrow  string
}

type samplesPage struct {
	pageData
	Query      services.SamplesQuery
	View       services.SamplesView
	Columns    []sortLink
	MoreURL    string
	CSVURL     string
	XLSXURL    string
	BestSample string
}

var sortColumns = []struct {
	label  string
	column analytics.SortColumn
}{
	{"Staal", analytics.SortByName},
	{"Staaltjes", analytics.SortBySamples},
	{"Verkopen", analytics.SortBySales},
	{"Conversie", analytics.SortByConversionRate},
}

func (s *Server) handleSamples(w http.ResponseWriter, r *http.Request) {
	q := parseSamplesQuery(r.URL.Query())
	view, err := s.dashboard.Samples(r.Context(), q)
	if err != nil {
		s.noData(w, r, "samples", err)
		return
	}

	cols := make([]sortLink, 0, len(sortColumns))
	for _, c := range sortColumns {
		next := q
		next.Sort = q.Sort.Toggle(c.column)
		next.Limit = analytics.PageStep
		link := sortLink{Label: c.label, URL: samplesURL(next, "/samples")}
		if q.Sort.Column == c.column {
			link.Active = true
			link.Arrow = "▲"
			if q.Sort.Direction == analytics.Descending {
				link.Arrow = "▼"
			}
		}
		cols = append(cols, link)
	}

	more := q
	more.Limit = view.NextLimit
	export := q
	export.Limit = 0

	best := view.Summary.BestSample
	if !view.Summary.HasBest {
		best = "Geen data"
	}
	s.render(w, r, "samples.html", samplesPage{
		pageData:   s.page(r, "samples", q.Selection, true),
		Query:      q,
		View:       view,
		Columns:    cols,
		MoreURL:    samplesURL(more, "/samples"),
		CSVURL:     samplesURL(export, "/samples/export.csv"),
		XLSXURL:    samplesURL(export, "/samples/export.xlsx"),
		BestSample: best,
	})
}

type geoPage struct {
	pageData
	View   services.GeoView
	Top    []bar
	Points []mapPoint
	Width  int
	Height int
}

func (s *Server) handleGeo(w http.ResponseWriter, r *http.Request) {
	sel := parseSelection(r.URL.Query())
	view, err := s.dashboard.Geo(r.Context(), sel)
	if err != nil {
		s.noData(w, r, "geo", err)
		return
	}
	s.render(w, r, "geo.html", geoPage{
		pageData: s.page(r, "geo", sel, false),
		View:     view,
		Top:      countBars(view.Top),
		Points:   projectMarkers(view.Markers, view.Center),
		Width:    mapWidth,
		Height:   mapHeight,
	})
}

type bestSellingPage struct {
	pageData
	Rows []core.Revenue
	Bars []bar
}

func (s *Server) handleBestSelling(w http.ResponseWriter, r *http.Request) {
	sel := parseSelection(r.URL.Query())
	rows, err := s.dashboard.BestSelling(r.Context(), sel)
	if err != nil {
		s.noData(w, r, "best-selling", err)
		return
	}
	s.render(w, r, "best_selling.html", bestSellingPage{
		pageData: s.page(r, "best-selling", sel, false),
		Rows:     rows,
		Bars:     revenueBars(rows),
	})
}

type monthlyPage struct {
	pageData
	View services.MonthlyView
	Bars []bar
}

func (s *Server) handleMonthly(w http.ResponseWriter, r *http.Request) {
	sel := parseSelection(r.URL.Query())
	view, err := s.dashboard.Monthly(r.Context(), sel)
	if err != nil {
		s.noData(w, r, "monthly", err)
		return
	}
	s.render(w, r, "monthly.html", monthlyPage{
		pageData: s.page(r, "monthly", sel, true),
		View:     view,
		Bars:     monthBars(view.Months),
	})
}

func (s *Server) handleCustomers(w http.ResponseWriter, r *http.Request) {
	pd := pageData{Page: "customers", Auth: s.authEnabled()}
	if !s.insightsUnlocked(r) {
		s.render(w, r, "insights_login.html", pd)
		return
	}
	s.render(w, r, "customers.html", pd)
}

func (s *Server) handleCustomersUnlock(w http.ResponseWriter, r *http.Request) {
	if s.opts.InsightsPassword == "" {
		http.Redirect(w, r, "/customers", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	pd := pageData{Page: "customers", Auth: s.authEnabled()}
	if err := checkPassword(r.PostForm.Get("password"), s.opts.InsightsPassword); err != nil {
		pd.Message = "Onjuist wachtwoord. Probeer het opnieuw!"
		s.renderStatus(w, r, http.StatusUnauthorized, "insights_login.html", pd)
		return
	}

	token := sessionToken(r)
	if _, ok := s.sessions.lookup(token); !ok {
		// Without the dashboard gate there is no session yet.
		token = s.sessions.create()
		s.setSessionCookie(w, token)
	}
	s.sessions.unlockInsights(token)
	http.Redirect(w, r, "/customers", http.StatusSeeOther)
}

// handleRefresh drops the cached records and, with a broker configured,
// asks the worker for a new import.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	logger := log.FromContext(r.Context())
	s.dashboard.Invalidate()

	resp := map[string]any{"invalidated": true, "queued": false}
	if s.opts.Refresher != nil {
		req, err := s.opts.Refresher.PublishRefresh(r.Context(), s.opts.SourceName)
		if err != nil {
			logger.ErrorContext(r.Context(), "Refresh request failed",
				log.FieldOperation, log.OpRefresh,
				log.FieldSource, s.opts.SourceName,
				log.FieldError, err)
			resp["error"] = "refresh kon niet worden aangevraagd"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
		logger.InfoContext(r.Context(), "Refresh requested",
			log.FieldOperation, log.OpRefresh,
			log.FieldMessageID, req.ID,
			log.FieldSource, req.Source)
		resp["queued"] = true
		resp["id"] = req.ID
	}

	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}
	target := r.Header.Get("Referer")
	if target == "" || !sameOrigin(r, target) {
		target = "/"
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}
