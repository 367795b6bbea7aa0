package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"kakeibo/internal/sheets"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
		{64, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"refused", errors.New("dial tcp: connection refused"), true},
		{"closed", errors.New("Connection Closed by peer"), true},
		{"eof", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("write: broken pipe"), true},
		{"wrapped closed socket", fmt.Errorf("publish: %w", errors.New("use of closed network connection")), true},
		{"other", errors.New("precondition failed"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestCircuitBreaker(t *testing.T) {
	client := &Client{}

	if client.isCircuitOpen() {
		t.Fatal("circuit should start closed")
	}

	for i := 0; i < maxFailures-1; i++ {
		client.recordFailure()
	}
	if client.isCircuitOpen() {
		t.Fatal("circuit should stay closed below the failure threshold")
	}

	client.recordFailure()
	if !client.isCircuitOpen() {
		t.Fatal("circuit should open at the failure threshold")
	}

	client.lastFailure = time.Now().Add(-openTimeout - time.Second)
	if client.isCircuitOpen() {
		t.Fatal("circuit should half-open after the timeout")
	}
	if atomic.LoadInt32(&client.state) != StateHalfOpen {
		t.Fatalf("state = %d, want half-open", client.state)
	}

	// a failure while half-open trips it again immediately
	client.recordFailure()
	if !client.isCircuitOpen() {
		t.Fatal("half-open failure should reopen the circuit")
	}

	client.recordSuccess()
	if client.isCircuitOpen() || atomic.LoadInt64(&client.failureCount) != 0 {
		t.Fatal("success should close the circuit and reset failures")
	}
}

func TestPublishMutationShortCircuits(t *testing.T) {
	m := sheets.AppendMutation("Ledger", [][]string{{"2025-03-01"}})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		client := &Client{}
		if err := client.PublishMutation(ctx, 1, m); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})

	t.Run("open circuit", func(t *testing.T) {
		client := &Client{state: StateOpen, lastFailure: time.Now()}
		if err := client.PublishMutation(context.Background(), 1, m); !errors.Is(err, ErrCircuitOpen) {
			t.Fatalf("expected ErrCircuitOpen, got %v", err)
		}
	})
}

func TestSyncMessageFromJSON(t *testing.T) {
	msg := NewSyncMessage(7, sheets.CellMutation("Shopping", 2, 3, "purchased"))
	if _, err := uuid.Parse(msg.ID); err != nil {
		t.Fatalf("message id is not a uuid: %q", msg.ID)
	}
	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	got, err := SyncMessageFromJSON(body)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.OutboxID != 7 || got.Mutation.Row != 2 || got.Mutation.Col != 3 || got.Mutation.Value != "purchased" {
		t.Fatalf("unexpected message %+v", got)
	}

	bad := []string{
		`not json`,
		`{"id":"nope","mutation":{"kind":"append","sheet":"Ledger","rows":[["x"]]}}`,
		`{"id":"` + uuid.NewString() + `","mutation":{"kind":"drop","sheet":"Ledger"}}`,
	}
	for _, b := range bad {
		if _, err := SyncMessageFromJSON([]byte(b)); err == nil {
			t.Errorf("expected error for %s", b)
		}
	}
}
