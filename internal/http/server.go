// Package http exposes the expense ledger over a plain-text HTTP API.
package http

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"kassa/internal/cache"
	"kassa/internal/charts"
	applog "kassa/internal/log"
	"kassa/internal/middleware/ratelimit"
	"kassa/internal/middleware/trace"
	"kassa/internal/services"
)

type Server struct {
	http.Server
	registry *services.CategoryRegistry
	ledger   *services.ExpenseLedger
	reporter *services.Reporter
	charts   *charts.Generator
	ready    func(ctx context.Context) error

	limiter *ratelimit.Limiter

	// Report text cached per user and window, dropped on any mutation.
	reportCache *cache.LRU[string]

	shutdownOnce sync.Once
}

type Deps struct {
	Registry *services.CategoryRegistry
	Ledger   *services.ExpenseLedger
	Reporter *services.Reporter
	Charts   *charts.Generator
	// Ready is probed by /readyz, usually the database ping.
	Ready func(ctx context.Context) error
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, logger *applog.Logger, deps Deps) *Server {
	mux := http.NewServeMux()

	s := &Server{
		registry:    deps.Registry,
		ledger:      deps.Ledger,
		reporter:    deps.Reporter,
		charts:      deps.Charts,
		ready:       deps.Ready,
		limiter:     ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		reportCache: cache.NewLRU[string](200, 5*time.Minute),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("GET /categories", s.handleListCategories)
	mux.HandleFunc("DELETE /categories/{name}", s.handleDeleteCategory)

	mux.HandleFunc("POST /expenses", s.handleAddExpenses)
	mux.HandleFunc("GET /expenses", s.handleGetExpenses)
	mux.HandleFunc("GET /expenses/chart", s.handleExpensesChart)
	mux.HandleFunc("DELETE /expenses/last", s.handleDeleteLast)

	mux.HandleFunc("POST /budget", s.handleSetBudget)
	mux.HandleFunc("GET /budget", s.handleGetBudget)

	tracer := trace.NewMiddleware(nil)
	handler := applog.Middleware(logger)(tracer.Handler(s.withGuards(mux)))

	s.Server = http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// ReportCache exposes the cache for periodic expired-entry sweeps.
func (s *Server) ReportCache() cache.Cleaner { return s.reportCache }

// Shutdown stops the HTTP listener and the rate limiter housekeeping.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		if s.limiter != nil {
			s.limiter.Stop()
		}
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// withGuards rate-limits mutating requests and sets baseline headers.
func (s *Server) withGuards(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		switch r.Method {
		case http.MethodPost, http.MethodDelete, http.MethodPut:
			if !s.limiter.Allow(trace.ClientIP(r)) {
				applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
					applog.FieldClientIP, trace.ClientIP(r),
					applog.FieldMethod, r.Method,
					applog.FieldPath, r.URL.Path)
				w.Header().Set("Retry-After", "60")
				http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) reportCacheKey(userID int64, window string) string {
	return strconv.FormatInt(userID, 10) + ":" + window
}

func (s *Server) invalidateReports(userID int64) {
	s.reportCache.DeletePrefix(strconv.FormatInt(userID, 10) + ":")
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			applog.FromContext(r.Context()).ErrorContext(r.Context(), "Readiness check failed",
				applog.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
