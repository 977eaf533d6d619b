// Package trace assigns request IDs and logs request lifecycles.
package trace

import (
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"kassa/internal/log"
)

// Middleware handles request tracing and logging.
type Middleware struct {
	extractIP func(*http.Request) string
	metrics   Metrics
}

// Metrics tracks simple request counters.
type Metrics struct {
	TotalRequests int64
}

func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	if extractIP == nil {
		extractIP = ClientIP
	}
	return &Middleware{extractIP: extractIP}
}

// Handler wraps next with request-ID assignment, an enriched context logger
// and start/end logging.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := m.extractIP(r)
		requestID := uuid.NewString()

		logger := log.FromContext(r.Context()).With(
			log.FieldRequestID, requestID,
			log.FieldClientIP, clientIP,
		)
		ctx := log.IntoContext(r.Context(), logger)
		r = r.WithContext(ctx)

		logger.InfoContext(ctx, "HTTP request started",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			"user_agent", r.Header.Get("User-Agent"))

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		logger.InfoContext(ctx, "HTTP request completed",
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path,
			log.FieldStatusCode, rw.status,
			log.FieldDuration, time.Since(start).Milliseconds())
	})
}

// TotalRequests returns the number of requests seen so far.
func (m *Middleware) TotalRequests() int64 {
	return atomic.LoadInt64(&m.metrics.TotalRequests)
}

// ClientIP extracts the caller address, honoring common proxy headers.
func ClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
