// Package trace assigns request IDs and logs the request lifecycle.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"verkoop/internal/log"
)

// HeaderRequestID carries an upstream request ID in and ours out. Only
// UUIDs are accepted from upstream.
const HeaderRequestID = "X-Request-ID"

type ctxKey struct{}

// Stats is a snapshot of the request counters.
type Stats struct {
	Requests     int64
	ServerErrors int64
	LastDuration time.Duration
}

type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.StructuredLogger

	requests     atomic.Int64
	serverErrors atomic.Int64
	lastDuration atomic.Int64
}

func NewMiddleware(logger *log.Logger, clientIP func(*http.Request) string) *Middleware {
	return &Middleware{clientIP: clientIP, logger: log.NewStructuredLogger(logger)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}

		id := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		r = r.WithContext(ctx)
		w.Header().Set(HeaderRequestID, id)

		m.requests.Add(1)
		m.logger.LogHTTPStart(ctx, r, ip)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		elapsed := time.Since(start)
		m.lastDuration.Store(int64(elapsed))
		if rec.status >= http.StatusInternalServerError {
			m.serverErrors.Add(1)
		}
		m.logger.LogHTTPEnd(ctx, r, rec.status, elapsed.Milliseconds(), ip)
	})
}

// Stats returns the counters since startup.
func (m *Middleware) Stats() Stats {
	return Stats{
		Requests:     m.requests.Load(),
		ServerErrors: m.serverErrors.Load(),
		LastDuration: time.Duration(m.lastDuration.Load()),
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// RequestID returns the ID the middleware stored in ctx, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// RequestIDFromRequest is the extractor used by log.Middleware.
func RequestIDFromRequest(r *http.Request) string {
	return RequestID(r.Context())
}
