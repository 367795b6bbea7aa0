package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("%q: got %v want %v", in, got, want)
		}
	}
}

func TestJSONLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: FormatJSON, Level: slog.LevelInfo, Output: &buf}).WithComponent(ComponentLedger)
	l.Info("recorded", FieldAmount, 1200)
	l.Debug("hidden")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line above debug level, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("not json: %v", err)
	}
	if entry[FieldComponent] != ComponentLedger || entry[FieldAmount] != float64(1200) {
		t.Fatalf("unexpected entry %v", entry)
	}
}

func TestTintIsDefault(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "whatever", Output: &buf})
	l.Info("hello")
	if !strings.Contains(buf.String(), "hello") || strings.HasPrefix(buf.String(), "{") {
		t.Fatalf("unexpected tint output %q", buf.String())
	}
}

func TestRequestIDContext(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Format: FormatJSON, Output: &buf})
	ctx := WithRequestID(NewContext(context.Background(), base), "req_abc")

	if got := RequestID(ctx); got != "req_abc" {
		t.Fatalf("RequestID = %q", got)
	}
	FromContext(ctx).InfoContext(ctx, "inside")
	NewStructuredLogger(base).LogError(ctx, "failed", errors.New("boom"), OpRead, nil)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %s", len(lines), buf.String())
	}
	for _, l := range lines {
		if !strings.Contains(l, `"request_id":"req_abc"`) {
			t.Errorf("request id missing: %s", l)
		}
	}
	if RequestID(context.Background()) != "" {
		t.Errorf("empty context should have no request id")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: FormatJSON, Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/settlement?year=2025", nil)
	sl.LogHTTPEnd(context.Background(), r, http.StatusServiceUnavailable, 12, "127.0.0.1")
	sl.LogRowSkipped(context.Background(), "Ledger", 4, errors.New("amount: invalid amount"))

	out := buf.String()
	if !strings.Contains(out, `"level":"ERROR"`) || !strings.Contains(out, `"level":"WARN"`) {
		t.Fatalf("unexpected levels: %s", out)
	}
	if !strings.Contains(out, `"row":4`) || !strings.Contains(out, `"sheet":"Ledger"`) {
		t.Fatalf("row fields missing: %s", out)
	}
}
