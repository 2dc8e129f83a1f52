package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"verkoop/internal/core"
	ports "verkoop/internal/sheets"
)

const (
	// GvizSourceName identifies the public visualization endpoint.
	GvizSourceName = "gviz"

	defaultGvizBaseURL = "https://docs.google.com"
	maxGvizBody        = 16 << 20
)

// ErrNoTable is returned for a gviz response without a table.
var ErrNoTable = errors.New("gviz response has no table")

// GvizClient reads a publicly shared spreadsheet through the
// visualization query endpoint, one request per tab. No credentials are
// needed.
type GvizClient struct {
	httpClient    *http.Client
	baseURL       string
	spreadsheetID string
	tabs          []string
	cols          core.Columns
}

var _ ports.RecordSource = (*GvizClient)(nil)

// GvizOption customizes a GvizClient.
type GvizOption func(*GvizClient)

// WithHTTPClient replaces the pooled default client.
func WithHTTPClient(c *http.Client) GvizOption {
	return func(g *GvizClient) { g.httpClient = c }
}

// WithBaseURL points the client at another host, e.g. a test server.
func WithBaseURL(u string) GvizOption {
	return func(g *GvizClient) { g.baseURL = strings.TrimRight(u, "/") }
}

// NewGviz creates a client for the given spreadsheet and tabs.
func NewGviz(spreadsheetID string, tabs []string, cols core.Columns, timeout time.Duration, opts ...GvizOption) *GvizClient {
	g := &GvizClient{
		httpClient:    newHTTPClientWithPooling(timeout),
		baseURL:       defaultGvizBaseURL,
		spreadsheetID: spreadsheetID,
		tabs:          append([]string(nil), tabs...),
		cols:          cols,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// LoadRecords fetches every tab sequentially. A failing tab is logged and
// skipped.
func (g *GvizClient) LoadRecords(ctx context.Context) ([]core.Record, error) {
	return ports.LoadTabs(ctx, GvizSourceName, g.tabs, g.LoadTab)
}

// LoadTab fetches one tab. A tab without a table yields no records.
func (g *GvizClient) LoadTab(ctx context.Context, tab string) ([]core.Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.tabURL(tab), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch tab: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGvizBody))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	recs, err := ParseGviz(body, g.cols, tab)
	if errors.Is(err, ErrNoTable) {
		slog.WarnContext(ctx, "No table in gviz response", "tab", tab)
		return nil, nil
	}
	return recs, err
}

func (g *GvizClient) tabURL(tab string) string {
	q := url.Values{}
	q.Set("tqx", "out:json")
	q.Set("sheet", tab)
	return fmt.Sprintf("%s/spreadsheets/d/%s/gviz/tq?%s", g.baseURL, url.PathEscape(g.spreadsheetID), q.Encode())
}

type (
	gvizResponse struct {
		Status string      `json:"status"`
		Errors []gvizError `json:"errors"`
		Table  *gvizTable  `json:"table"`
	}

	gvizError struct {
		Reason          string `json:"reason"`
		Message         string `json:"message"`
		DetailedMessage string `json:"detailed_message"`
	}

	gvizTable struct {
		Cols []gvizCol `json:"cols"`
		Rows []gvizRow `json:"rows"`
	}

	gvizCol struct {
		ID    string `json:"id"`
		Label string `json:"label"`
		Type  string `json:"type"`
	}

	gvizRow struct {
		C []*gvizCell `json:"c"`
	}

	gvizCell struct {
		V any    `json:"v"`
		F string `json:"f"`
	}
)

// ParseGviz decodes a gviz JSON response, wrapper included, into records.
// Columns come from the column labels and cells from their raw value; a
// null cell is empty. Records without a period get tab.
func ParseGviz(body []byte, cols core.Columns, tab string) ([]core.Record, error) {
	payload, err := unwrapGviz(body)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	var resp gvizResponse
	if err := dec.Decode(&resp); err != nil {
		return nil, fmt.Errorf("decode gviz: %w", err)
	}
	if resp.Status == "error" {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, strings.TrimSpace(e.Reason+": "+e.DetailedMessage))
		}
		return nil, fmt.Errorf("gviz error: %s", strings.Join(msgs, "; "))
	}
	if resp.Table == nil {
		return nil, ErrNoTable
	}

	header := make([]string, len(resp.Table.Cols))
	for i, c := range resp.Table.Cols {
		header[i] = strings.TrimSpace(c.Label)
	}
	rows := make([][]any, 0, len(resp.Table.Rows))
	for _, r := range resp.Table.Rows {
		row := make([]any, len(r.C))
		for i, cell := range r.C {
			if cell != nil {
				row[i] = cell.V
			}
		}
		rows = append(rows, row)
	}
	return ports.RecordsFromTable(header, rows, cols, tab), nil
}

// unwrapGviz strips the "/*O_o*/ google.visualization.Query.setResponse(...);"
// wrapper by taking the first balanced JSON object in the body.
func unwrapGviz(b []byte) ([]byte, error) {
	start := bytes.IndexByte(b, '{')
	if start < 0 {
		return nil, errors.New("no JSON object in gviz response")
	}
	depth := 0
	inString := false
	escapeNext := false
	for i := start; i < len(b); i++ {
		c := b[i]
		if inString {
			switch {
			case escapeNext:
				escapeNext = false
			case c == '\\':
				escapeNext = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return b[start : i+1], nil
			}
		}
	}
	return nil, errors.New("unterminated JSON object in gviz response")
}
