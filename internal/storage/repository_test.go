package storage

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	ports "kakeibo/internal/sheets"
)

func newTestRepo(t *testing.T, opts ...Option) *SQLiteRepository {
	t.Helper()
	r, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "kakeibo.db"), opts...)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRepositoryRowStore(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)

	snap, err := r.ReadAll(ctx, "Ledger")
	if err != nil || !snap.Empty() {
		t.Fatalf("expected empty sheet, got %+v err=%v", snap, err)
	}

	header := []string{"date", "amount"}
	if err := r.Append(ctx, "Ledger", header); err != nil {
		t.Fatalf("append header: %v", err)
	}
	rows := [][]string{{"2025-03-01", "100"}, {"2025-03-02", "200"}}
	if err := r.AppendMany(ctx, "Ledger", rows); err != nil {
		t.Fatalf("append rows: %v", err)
	}
	if err := r.Append(ctx, "Other", []string{"x"}); err != nil {
		t.Fatalf("append other: %v", err)
	}

	snap, err = r.ReadAll(ctx, "Ledger")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !reflect.DeepEqual(snap.Header, header) || !reflect.DeepEqual(snap.Rows, rows) {
		t.Fatalf("unexpected snapshot %+v", snap)
	}

	if err := r.UpdateCell(ctx, "Ledger", 1, 3, "note"); err != nil {
		t.Fatalf("update: %v", err)
	}
	snap, _ = r.ReadAll(ctx, "Ledger")
	if !reflect.DeepEqual(snap.Rows[1], []string{"2025-03-02", "200", "", "note"}) {
		t.Fatalf("cell not written: %v", snap.Rows[1])
	}
	if err := r.UpdateCell(ctx, "Ledger", 5, 0, "x"); !errors.Is(err, ports.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}

	want := ports.Snapshot{Header: header, Rows: [][]string{{"2025-04-01", "5"}}}
	if err := r.ReplaceSnapshot(ctx, "Ledger", want); err != nil {
		t.Fatalf("replace: %v", err)
	}
	snap, _ = r.ReadAll(ctx, "Ledger")
	if !reflect.DeepEqual(snap, want) {
		t.Fatalf("got %+v want %+v", snap, want)
	}
	other, _ := r.ReadAll(ctx, "Other")
	if len(other.Header) != 1 {
		t.Fatalf("replace touched another sheet: %+v", other)
	}
}

func TestRepositoryOutbox(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t, WithOutbox())

	_ = r.Append(ctx, "Shopping", []string{"item", "status"})
	_ = r.AppendMany(ctx, "Shopping", [][]string{{"milk", "pending"}})
	_ = r.UpdateCell(ctx, "Shopping", 0, 1, "purchased")

	pending, err := r.PendingMutations(ctx, 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(pending) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(pending))
	}
	kinds := []ports.MutationKind{pending[0].Mutation.Kind, pending[1].Mutation.Kind, pending[2].Mutation.Kind}
	want := []ports.MutationKind{ports.MutationAppend, ports.MutationAppend, ports.MutationCell}
	if !reflect.DeepEqual(kinds, want) {
		t.Fatalf("unexpected order %v", kinds)
	}
	if pending[2].Mutation.Value != "purchased" || pending[2].Mutation.Row != 0 {
		t.Fatalf("cell mutation not recorded: %+v", pending[2].Mutation)
	}

	if err := r.MarkSynced(ctx, pending[0].ID); err != nil {
		t.Fatalf("mark synced: %v", err)
	}
	if err := r.MarkFailed(ctx, pending[1].ID, errors.New("boom"), 2); err != nil {
		t.Fatalf("mark failed: %v", err)
	}
	stats, _ := r.OutboxStats(ctx)
	if stats.Pending != 2 || stats.Failed != 0 {
		t.Fatalf("first failure should stay pending, got %+v", stats)
	}
	_ = r.MarkFailed(ctx, pending[1].ID, errors.New("boom"), 2)
	stats, _ = r.OutboxStats(ctx)
	if stats.Pending != 1 || stats.Failed != 1 {
		t.Fatalf("second failure should give up, got %+v", stats)
	}

	n, err := r.CleanupSynced(ctx, -time.Minute)
	if err != nil || n != 1 {
		t.Fatalf("expected one synced entry removed, got %d err=%v", n, err)
	}
}

func TestRepositoryWithoutOutboxQueuesNothing(t *testing.T) {
	ctx := context.Background()
	r := newTestRepo(t)
	_ = r.Append(ctx, "Ledger", []string{"x"})
	pending, err := r.PendingMutations(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty outbox, got %d err=%v", len(pending), err)
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "v.db")
	if err := RunMigrations(path); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run should be a no-op: %v", err)
	}
	v, dirty, err := SchemaVersion(path)
	if err != nil || dirty || v != 2 {
		t.Fatalf("expected clean version 2, got %d dirty=%v err=%v", v, dirty, err)
	}
}
