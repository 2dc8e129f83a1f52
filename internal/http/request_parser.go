package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"verkoop/internal/analytics"
	"verkoop/internal/core"
	"verkoop/internal/services"
)

const maxSearchLen = 100

// parseSelection reads the period and product filters from the query.
func parseSelection(q url.Values) core.FilterSelection {
	return core.NewFilterSelection(sanitizeInput(q.Get("period")), sanitizeInput(q.Get("product")))
}

// parseSamplesQuery reads the conversion table state. An unknown sort
// column leaves the rows unsorted; rows below one page fall back to one page.
func parseSamplesQuery(q url.Values) services.SamplesQuery {
	out := services.SamplesQuery{
		Selection: parseSelection(q),
		Search:    sanitizeInput(q.Get("q")),
		Limit:     analytics.PageStep,
	}
	if rs := []rune(out.Search); len(rs) > maxSearchLen {
		out.Search = string(rs[:maxSearchLen])
	}
	if col, ok := analytics.ParseSortColumn(strings.TrimSpace(q.Get("sort"))); ok {
		out.Sort = analytics.SortState{Column: col, Direction: analytics.ParseDirection(q.Get("dir"))}
	}
	if v := strings.TrimSpace(q.Get("rows")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			out.Limit = n
		}
	}
	return out
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 {
			return -1
		}
		return r
	}, s)
}

func isAPIRequest(r *http.Request) bool {
	return strings.HasPrefix(r.URL.Path, "/api/")
}

// samplesURL renders the /samples link for a table state, keeping the
// filters so that sorting and "load more" do not lose them.
func samplesURL(q services.SamplesQuery, path string) string {
	v := url.Values{}
	if !q.Selection.IsAllPeriods() {
		v.Set("period", q.Selection.Period)
	}
	if q.Selection.Product != "" {
		v.Set("product", q.Selection.Product)
	}
	if q.Search != "" {
		v.Set("q", q.Search)
	}
	if q.Sort.Column != "" {
		v.Set("sort", string(q.Sort.Column))
		v.Set("dir", string(q.Sort.Direction))
	}
	if q.Limit > 0 && q.Limit != analytics.PageStep {
		v.Set("rows", strconv.Itoa(q.Limit))
	}
	if len(v) == 0 {
		return path
	}
	return path + "?" + v.Encode()
}
