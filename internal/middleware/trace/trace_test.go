package trace

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"verkoop/internal/log"
)

func newTestMiddleware() *Middleware {
	logger := log.New(log.Config{Level: slog.LevelError, Component: log.ComponentHTTP, Output: io.Discard})
	return NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })
}

func TestMiddleware_RequestID(t *testing.T) {
	m := newTestMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromRequest(r)
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sales", nil))
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
		assert.Equal(t, seen, rec.Header().Get(HeaderRequestID))
	})

	t.Run("upstream uuid kept", func(t *testing.T) {
		upstream := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/sales", nil)
		req.Header.Set(HeaderRequestID, upstream)
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, upstream, seen)
	})

	t.Run("upstream garbage replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/sales", nil)
		req.Header.Set(HeaderRequestID, "<script>")
		h.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "<script>", seen)
		_, err := uuid.Parse(seen)
		assert.NoError(t, err)
	})
}

func TestMiddleware_Stats(t *testing.T) {
	m := newTestMiddleware()
	ok := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	broken := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	ok.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	rec := httptest.NewRecorder()
	broken.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	stats := m.Stats()
	assert.EqualValues(t, 3, stats.Requests)
	assert.EqualValues(t, 1, stats.ServerErrors)
}

func TestRequestID_Missing(t *testing.T) {
	assert.Empty(t, RequestID(httptest.NewRequest(http.MethodGet, "/", nil).Context()))
}
