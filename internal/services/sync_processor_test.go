package services

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"kakeibo/internal/sheets"
	"kakeibo/internal/sheets/memory"
	"kakeibo/internal/storage"
)

type flakyPublisher struct {
	fails int
	calls int
	next  MutationPublisher
}

func (f *flakyPublisher) PublishMutation(ctx context.Context, id int64, m sheets.Mutation) error {
	f.calls++
	if f.fails > 0 {
		f.fails--
		return errors.New("broker down")
	}
	return f.next.PublishMutation(ctx, id, m)
}

func newOutboxRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "kakeibo.db"), storage.WithOutbox())
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestDefaultSyncProcessorConfig(t *testing.T) {
	config := DefaultSyncProcessorConfig()

	if config.PollInterval != 10*time.Second {
		t.Errorf("expected PollInterval 10s, got %v", config.PollInterval)
	}
	if config.BatchSize != 10 {
		t.Errorf("expected BatchSize 10, got %d", config.BatchSize)
	}
	if config.MaxRetries != 3 {
		t.Errorf("expected MaxRetries 3, got %d", config.MaxRetries)
	}
	if config.CleanupAge != 24*time.Hour {
		t.Errorf("expected CleanupAge 24h, got %v", config.CleanupAge)
	}
}

func TestSyncProcessor_ReplicatesInOrder(t *testing.T) {
	ctx := context.Background()
	repo := newOutboxRepo(t)
	replica := memory.New()

	_ = repo.Append(ctx, "Shopping", []string{"item", "place", "expected_price", "status", "memo"})
	_ = repo.AppendMany(ctx, "Shopping", [][]string{{"milk", "store", "200", "pending", ""}})
	_ = repo.UpdateCell(ctx, "Shopping", 0, 3, "purchased")

	pub := &flakyPublisher{fails: 1, next: DirectPublisher{Store: replica}}
	p := NewSyncProcessor(repo, pub, DefaultSyncProcessorConfig(), nil)

	if n := p.ProcessBatch(ctx); n != 0 {
		t.Fatalf("failed batch should deliver nothing, got %d", n)
	}
	if pub.calls != 1 {
		t.Fatalf("batch should stop at the first failure, got %d calls", pub.calls)
	}
	stats, _ := p.Stats(ctx)
	if stats.Pending != 3 {
		t.Fatalf("entries should stay pending after one failure, got %+v", stats)
	}

	if n := p.ProcessBatch(ctx); n != 3 {
		t.Fatalf("expected 3 delivered, got %d", n)
	}
	want, _ := repo.ReadAll(ctx, "Shopping")
	got, _ := replica.ReadAll(ctx, "Shopping")
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("replica diverged:\n got %+v\nwant %+v", got, want)
	}
	if n := p.ProcessBatch(ctx); n != 0 {
		t.Fatalf("drained outbox should deliver nothing, got %d", n)
	}
}

func TestSyncProcessor_GivesUpAfterMaxRetries(t *testing.T) {
	ctx := context.Background()
	repo := newOutboxRepo(t)
	_ = repo.Append(ctx, "Ledger", []string{"date"})

	config := DefaultSyncProcessorConfig()
	config.MaxRetries = 2
	p := NewSyncProcessor(repo, &flakyPublisher{fails: 10}, config, nil)

	p.ProcessBatch(ctx)
	p.ProcessBatch(ctx)

	stats, _ := p.Stats(ctx)
	if stats.Pending != 0 || stats.Failed != 1 {
		t.Fatalf("expected entry to be failed, got %+v", stats)
	}
}

func TestSyncProcessor_StartStop(t *testing.T) {
	repo := newOutboxRepo(t)
	config := DefaultSyncProcessorConfig()
	config.PollInterval = 10 * time.Millisecond
	p := NewSyncProcessor(repo, DirectPublisher{Store: memory.New()}, config, nil)

	if p.IsRunning() {
		t.Fatal("processor should not be running initially")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(ctx); err == nil {
		t.Fatal("expected error when starting twice")
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), time.Second)
	defer stopCancel()
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if p.IsRunning() {
		t.Fatal("processor should not be running after stop")
	}
	if err := p.Stop(stopCtx); err != nil {
		t.Fatalf("second stop should be a no-op: %v", err)
	}
}
