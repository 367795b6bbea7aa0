// Package trace tags each request with an ID and records its outcome.
package trace

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/log"
)

// HeaderRequestID is echoed back, and accepted from trusted proxies.
const HeaderRequestID = "X-Request-ID"

// Observer receives every completed request. route is the matched mux
// pattern, or "unmatched".
type Observer func(method, route string, status int, d time.Duration)

type Middleware struct {
	extractIP func(*http.Request) string
	base      *log.Logger
	logger    *log.StructuredLogger
	observe   Observer
}

func NewMiddleware(extractIP func(*http.Request) string, logger *log.Logger, observe Observer) *Middleware {
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)
	return &Middleware{
		extractIP: extractIP,
		base:      logger,
		logger:    log.NewStructuredLogger(logger),
		observe:   observe,
	}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(HeaderRequestID)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := log.WithRequestID(log.NewContext(r.Context(), m.base), requestID)
		r = r.WithContext(ctx)

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		d := time.Since(start)
		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}
		m.logger.LogHTTPEnd(ctx, r, rw.statusCode, d.Milliseconds(), clientIP)

		if m.observe != nil {
			route := r.Pattern
			if route == "" {
				route = "unmatched"
			}
			m.observe(r.Method, route, rw.statusCode, d)
		}
	})
}

// responseWriter captures the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func GetRequestID(ctx context.Context) string {
	return log.RequestID(ctx)
}
