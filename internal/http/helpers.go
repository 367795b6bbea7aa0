package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"kakeibo/internal/core"
	"kakeibo/internal/middleware/trace"
	"kakeibo/internal/sheets"
)

// maxBodyBytes caps JSON bodies; uploads have their own limit.
const maxBodyBytes = 1 << 20

var errBadRequest = errors.New("bad request")

// parsePeriod reads year and month from the query. Missing values fall
// back to the current month; present but invalid ones are an error.
func (s *Server) parsePeriod(r *http.Request) (core.Period, error) {
	p := core.CurrentPeriod(s.now())
	q := r.URL.Query()
	for _, f := range []struct {
		name string
		dst  *int
	}{{"year", &p.Year}, {"month", &p.Month}} {
		v := strings.TrimSpace(q.Get(f.name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return core.Period{}, &core.ValidationError{Field: f.name, Value: v, Err: core.ErrInvalidPeriod}
		}
		*f.dst = n
	}
	if err := p.Validate(); err != nil {
		return core.Period{}, &core.ValidationError{Field: "period", Value: p.String(), Err: err}
	}
	return p, nil
}

// decodeJSON reads one JSON object into dst. Validation errors raised by
// field decoders are passed through; anything else is a bad request.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvariant):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sheets.ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, sheets.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes it as JSON. Internal errors are not
// echoed to the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, op string) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.failures.LogError(r.Context(), "Request failed", err, op, nil)
		if status == http.StatusInternalServerError {
			msg = http.StatusText(status)
		}
	}
	writeJSON(w, status, errorResponse{Error: msg, RequestID: trace.GetRequestID(r.Context())})
}

// clientIP prefers proxy headers, then the connection's remote address.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func validation(field, value string, err error) error {
	return &core.ValidationError{Field: field, Value: value, Err: err}
}
