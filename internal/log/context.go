package log

import (
	"context"
	"log/slog"
	"net/http"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	requestIDKey
)

// NewContext returns a copy of ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger carried by ctx, or one wrapping the slog
// default.
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(loggerKey).(*Logger); ok {
		return logger
	}
	return &Logger{Logger: slog.Default(), component: ComponentApp}
}

// WithRequestID tags ctx with a request ID. The logger carried by ctx, and
// every StructuredLogger call made with it, include the ID.
func WithRequestID(ctx context.Context, id string) context.Context {
	ctx = context.WithValue(ctx, requestIDKey, id)
	return NewContext(ctx, FromContext(ctx).With(FieldRequestID, id))
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// StructuredLogger writes the recurring log events of the service with a
// fixed set of fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) forContext(ctx context.Context) *Logger {
	if id := RequestID(ctx); id != "" {
		return sl.logger.With(FieldRequestID, id)
	}
	return sl.logger
}

// LogHTTPEnd logs a finished request. 4xx is logged at warn and 5xx at
// error.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}

	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	l := sl.forContext(ctx)
	l.Logger.Log(ctx, level, "HTTP request completed", l.attrs(fields.ToSlice())...)
}

// LogRowSkipped records a malformed ledger or shopping row that was left
// out of a view.
func (sl *StructuredLogger) LogRowSkipped(ctx context.Context, sheet string, row int, err error) {
	fields := NewFields().
		WithSheet(sheet).
		WithOperation(OpParse).
		WithError(err)
	fields[FieldRow] = row
	sl.forContext(ctx).WarnContext(ctx, "Skipping malformed row", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	sl.forContext(ctx).ErrorContext(ctx, msg, fields.WithError(err).WithOperation(operation).ToSlice()...)
}
