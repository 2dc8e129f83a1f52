package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"

	"verkoop/internal/core"
	"verkoop/internal/log"
)

const noDataMessage = "Geen data beschikbaar."

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// render executes a page template into a buffer first, so a template
// error never leaves a half-written page behind.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, data)
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldComponent, log.ComponentTemplate)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template render failed",
			log.FieldOperation, log.OpRender,
			"template", name,
			log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// noData renders the empty dashboard. The status stays 200 so the
// navigation keeps working while the source is down.
func (s *Server) noData(w http.ResponseWriter, r *http.Request, page string, err error) {
	sel := parseSelection(r.URL.Query())
	log.NewStructuredLogger(log.FromContext(r.Context())).LogError(r.Context(),
		"Dashboard data unavailable", err, log.OpLoad,
		log.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, "", "", "").
			WithFilter(sel.Period, sel.Product))
	s.render(w, r, "nodata.html", pageData{Page: page, Message: noDataMessage, Auth: s.authEnabled()})
}

// apiError answers a failed API load with 503 and logs it.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "API load failed",
		log.FieldPath, r.URL.Path,
		log.FieldError, err)
	writeJSONError(w, http.StatusServiceUnavailable, noDataMessage)
}

// pageData is the common part of every dashboard page.
type pageData struct {
	Page      string
	Message   string
	Auth      bool
	Refresh   bool
	Filters   filterForm
	Selection core.FilterSelection
}

type filterForm struct {
	Periods  []string
	Products []string
	// ShowProduct enables the product drop-down.
	ShowProduct bool
}

// bar is one row of a server-side rendered bar chart.
type bar struct {
	Name  string
	Label string
	Width float64
}

func countBars(counts []core.Count) []bar {
	max := 0
	for _, c := range counts {
		if c.Value > max {
			max = c.Value
		}
	}
	out := make([]bar, 0, len(counts))
	for _, c := range counts {
		out = append(out, bar{Name: c.Name, Label: strconv.Itoa(c.Value), Width: barWidth(float64(c.Value), float64(max))})
	}
	return out
}

func revenueBars(rows []core.Revenue) []bar {
	var max float64
	for _, r := range rows {
		max = math.Max(max, r.Omzet)
	}
	out := make([]bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, bar{Name: r.Name, Label: formatEuro(r.Omzet), Width: barWidth(r.Omzet, max)})
	}
	return out
}

func monthBars(rows []core.MonthRevenue) []bar {
	var max float64
	for _, r := range rows {
		max = math.Max(max, r.Omzet)
	}
	out := make([]bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, bar{Name: r.Month, Label: formatEuro(r.Omzet), Width: barWidth(r.Omzet, max)})
	}
	return out
}

// barWidth is v as a percentage of max, rounded to one decimal.
func barWidth(v, max float64) float64 {
	if max <= 0 || v <= 0 {
		return 0
	}
	return math.Round(v/max*1000) / 10
}

// formatEuro renders an amount the Dutch way: "€ 1.234,50".
func formatEuro(v float64) string {
	neg := v < 0
	cents := int64(math.Round(math.Abs(v) * 100))
	euros := strconv.FormatInt(cents/100, 10)

	var b strings.Builder
	for i, d := range euros {
		if i > 0 && (len(euros)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	s := "€ " + b.String() + "," + leftPad(strconv.FormatInt(cents%100, 10))
	if neg {
		return "-" + s
	}
	return s
}

func leftPad(s string) string {
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// formatPercent renders a rate with two decimals, as in the export.
func formatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"euro":    formatEuro,
		"percent": formatPercent,
		"width": func(v float64) template.CSS {
			return template.CSS("width: " + strconv.FormatFloat(v, 'f', 1, 64) + "%")
		},
		"dict": dict,
	}
}

// dict builds a map from alternating keys and values for sub-templates.
func dict(kv ...any) (map[string]any, error) {
	if len(kv)%2 != 0 {
		return nil, errors.New("dict: odd number of arguments")
	}
	m := make(map[string]any, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			return nil, fmt.Errorf("dict: key %v is not a string", kv[i])
		}
		m[k] = kv[i+1]
	}
	return m, nil
}

// mapPoint is a city marker projected onto the SVG map.
type mapPoint struct {
	Name  string
	Value int
	X, Y  float64
	R     float64
}

const (
	mapWidth  = 600
	mapHeight = 700
	mapMargin = 40
)

// projectMarkers fits the markers into the map viewport with an
// equirectangular projection. Circle area grows with the sales count.
func projectMarkers(markers []core.CityMarker, center core.LatLng) []mapPoint {
	if len(markers) == 0 {
		return nil
	}
	minLat, maxLat := center.Lat, center.Lat
	minLng, maxLng := center.Lng, center.Lng
	maxValue := 0
	for _, m := range markers {
		minLat, maxLat = math.Min(minLat, m.Lat), math.Max(maxLat, m.Lat)
		minLng, maxLng = math.Min(minLng, m.Lng), math.Max(maxLng, m.Lng)
		if m.Value > maxValue {
			maxValue = m.Value
		}
	}
	spanLat := math.Max(maxLat-minLat, 0.5)
	spanLng := math.Max(maxLng-minLng, 0.5)

	out := make([]mapPoint, 0, len(markers))
	for _, m := range markers {
		x := mapMargin + (m.Lng-minLng)/spanLng*(mapWidth-2*mapMargin)
		y := mapMargin + (maxLat-m.Lat)/spanLat*(mapHeight-2*mapMargin)
		r := 4.0
		if maxValue > 0 {
			r += 16 * math.Sqrt(float64(m.Value)/float64(maxValue))
		}
		out = append(out, mapPoint{
			Name:  m.Name,
			Value: m.Value,
			X:     math.Round(x*10) / 10,
			Y:     math.Round(y*10) / 10,
			R:     math.Round(r*10) / 10,
		})
	}
	return out
}
