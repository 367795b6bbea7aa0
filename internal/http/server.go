// Package http serves the household ledger as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"kakeibo/internal/log"
	"kakeibo/internal/middleware/ratelimit"
	"kakeibo/internal/middleware/security"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/services"
)

type Options struct {
	Ledger *services.LedgerService
	// Ready backs /readyz; nil means always ready.
	Ready     func(ctx context.Context) error
	Logger    *log.Logger
	Metrics   *Metrics
	RateLimit ratelimit.Config
	Now       func() time.Time
}

// Server is an http.Server with the API routes and middleware installed.
type Server struct {
	http.Server

	ledger   *services.LedgerService
	ready    func(ctx context.Context) error
	logger   *log.Logger
	failures *log.StructuredLogger
	metrics  *Metrics
	limiter  *ratelimit.Limiter
	now      func() time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:   opts.Ledger,
		ready:    opts.Ready,
		logger:   logger,
		failures: log.NewStructuredLogger(logger),
		metrics:  opts.Metrics,
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		now:      opts.Now,
	}

	mux := http.NewServeMux()
	api := s.limiter.Middleware(clientIP, s.onRateLimit)
	route := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, api(h))
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", s.metrics.Handler())

	route("GET /api/categories", s.handleCategories)
	route("GET /api/expenses", s.handleListExpenses)
	route("POST /api/expenses", s.handleCreateExpense)
	route("PUT /api/expenses", s.handleReplaceExpenses)
	route("POST /api/expenses/import", s.handleImportExpenses)
	route("GET /api/settlement", s.handleSettlement)
	route("GET /api/breakdown", s.handleBreakdown)
	route("GET /api/summary", s.handleSummary)
	route("GET /api/export", s.handleExport)
	route("GET /api/shopping", s.handleListShopping)
	route("POST /api/shopping", s.handleAddShopping)
	route("PUT /api/shopping", s.handleReplaceShopping)
	route("POST /api/shopping/{index}/toggle", s.handleToggleShopping)

	// trace sits directly on the mux so it sees the matched pattern
	var h http.Handler = mux
	h = trace.NewMiddleware(clientIP, opts.Logger, s.metrics.ObserveRequest).Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}
	return s
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.metrics.RateLimited()
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, clientIP(r), log.FieldMethod, r.Method, log.FieldPath, r.URL.Path)
	w.Header().Set("Retry-After", "60")
	writeJSON(w, http.StatusTooManyRequests, errorResponse{
		Error:     "rate limit exceeded, try again later",
		RequestID: trace.GetRequestID(r.Context()),
	})
}

// Shutdown stops the rate limiter and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := s.ready(ctx); err != nil {
			s.logger.WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
