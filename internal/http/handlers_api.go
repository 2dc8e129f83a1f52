package http

import (
	"bytes"
	"io"
	"net/http"
	"net/url"

	"verkoop/internal/analytics"
	"verkoop/internal/core"
	"verkoop/internal/log"
)

func (s *Server) apiFilters(w http.ResponseWriter, r *http.Request) {
	f, err := s.dashboard.Filters(r.Context())
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) apiSales(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Sales(r.Context(), parseSelection(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiSamples(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Samples(r.Context(), parseSamplesQuery(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiGeo(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Geo(r.Context(), parseSelection(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) apiBestSelling(w http.ResponseWriter, r *http.Request) {
	rows, err := s.dashboard.BestSelling(r.Context(), parseSelection(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	if rows == nil {
		rows = []core.Revenue{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (s *Server) apiMonthly(w http.ResponseWriter, r *http.Request) {
	view, err := s.dashboard.Monthly(r.Context(), parseSelection(r.URL.Query()))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// handleExportCSV downloads the sorted and searched conversion table,
// ignoring the visible row limit.
func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "text/csv; charset=utf-8", analytics.ConversionCSVName, analytics.WriteConversionCSV)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	s.export(w, r, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", analytics.ConversionXLSXName, analytics.WriteConversionXLSX)
}

func (s *Server) export(w http.ResponseWriter, r *http.Request, contentType, filename string, write func(io.Writer, []core.ConversionItem) error) {
	logger := log.FromContext(r.Context())
	view, err := s.dashboard.Samples(r.Context(), parseSamplesQuery(r.URL.Query()))
	if err != nil {
		logger.ErrorContext(r.Context(), "Export load failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		http.Error(w, noDataMessage, http.StatusServiceUnavailable)
		return
	}

	var buf bytes.Buffer
	if err := write(&buf, view.All); err != nil {
		logger.ErrorContext(r.Context(), "Export failed",
			log.FieldOperation, log.OpExport,
			log.FieldError, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	logger.InfoContext(r.Context(), "Export written",
		log.FieldOperation, log.OpExport,
		log.FieldRecords, len(view.All),
		"file", filename)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	_, _ = buf.WriteTo(w)
}

// sameOrigin reports whether target points back at this host.
func sameOrigin(r *http.Request, target string) bool {
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	if u.Scheme != "" && u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host == "" || u.Host == r.Host
}
