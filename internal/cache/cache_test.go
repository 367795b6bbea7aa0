package cache

import (
	"context"
	"testing"
	"time"

	"kakeibo/internal/sheets"
	"kakeibo/internal/sheets/memory"
)

type countingStore struct {
	*memory.Store
	reads int
}

func (c *countingStore) ReadAll(ctx context.Context, sheet string) (sheets.Snapshot, error) {
	c.reads++
	return c.Store.ReadAll(ctx, sheet)
}

// racingStore runs during once inside its first ReadAll, after the rows
// were read, like a write landing while a slow read is in flight.
type racingStore struct {
	*countingStore
	during func()
}

func (r *racingStore) ReadAll(ctx context.Context, sheet string) (sheets.Snapshot, error) {
	snap, err := r.countingStore.ReadAll(ctx, sheet)
	if f := r.during; f != nil {
		r.during = nil
		f()
	}
	return snap, err
}

func TestLRUCacheExpiryAndEviction(t *testing.T) {
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	c := NewLRUCache[int](2, time.Minute)
	c.now = func() time.Time { return now }

	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("a should be cached")
	}
	c.Set("c", 3) // evicts b, the least recently used
	if _, ok := c.Get("b"); ok {
		t.Fatal("b should have been evicted")
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d, want 2", c.Size())
	}

	now = now.Add(time.Minute)
	if n := c.CleanExpired(); n != 2 {
		t.Fatalf("expected 2 expired, got %d", n)
	}
	if st := c.Stats(); st.Hits != 1 || st.Misses != 1 || st.Evictions != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestStoreReadThroughAndInvalidation(t *testing.T) {
	ctx := context.Background()
	inner := &countingStore{Store: memory.New()}
	_ = inner.Append(ctx, "Ledger", []string{"date", "amount"})

	s := NewStore(inner, time.Hour, nil)

	first, err := s.ReadAll(ctx, "Ledger")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	first.Header[0] = "mutated"
	second, _ := s.ReadAll(ctx, "Ledger")
	if inner.reads != 1 {
		t.Fatalf("second read should be cached, got %d reads", inner.reads)
	}
	if second.Header[0] != "date" {
		t.Fatal("cached snapshot was shared with a caller")
	}

	if err := s.Append(ctx, "Ledger", []string{"2025-03-01", "100"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	third, _ := s.ReadAll(ctx, "Ledger")
	if inner.reads != 2 || len(third.Rows) != 1 {
		t.Fatalf("write should invalidate: reads=%d rows=%d", inner.reads, len(third.Rows))
	}
}

func TestStoreDoesNotCacheReadRacingAWrite(t *testing.T) {
	ctx := context.Background()
	inner := &racingStore{countingStore: &countingStore{Store: memory.New()}}
	_ = inner.Append(ctx, "Ledger", []string{"date", "amount"})

	s := NewStore(inner, time.Hour, nil)
	inner.during = func() {
		if err := s.Append(ctx, "Ledger", []string{"2025-03-01", "1000"}); err != nil {
			t.Errorf("append: %v", err)
		}
	}

	stale, err := s.ReadAll(ctx, "Ledger")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(stale.Rows) != 0 {
		t.Fatalf("expected the pre-write snapshot, got %v", stale.Rows)
	}

	got, err := s.ReadAll(ctx, "Ledger")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Rows) != 1 || inner.reads != 2 {
		t.Fatalf("stale snapshot served: rows=%v reads=%d", got.Rows, inner.reads)
	}

	if _, err := s.ReadAll(ctx, "Ledger"); err != nil || inner.reads != 2 {
		t.Fatalf("expected a cache hit, reads=%d err=%v", inner.reads, err)
	}
}
