package worker

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"kakeibo/internal/amqp"
	"kakeibo/internal/sheets"
	"kakeibo/internal/sheets/memory"
)

func TestHandleSyncMessageAppliesInOrder(t *testing.T) {
	ctx := context.Background()
	target := memory.New()
	w := NewSyncWorker(target, nil)

	msgs := []*amqp.SyncMessage{
		amqp.NewSyncMessage(1, sheets.AppendMutation("Shopping", [][]string{{"item", "status"}, {"milk", "pending"}})),
		amqp.NewSyncMessage(2, sheets.CellMutation("Shopping", 0, 1, "purchased")),
		// redelivery of an already applied message
		amqp.NewSyncMessage(1, sheets.AppendMutation("Shopping", [][]string{{"item", "status"}, {"milk", "pending"}})),
	}
	for _, m := range msgs {
		if err := w.HandleSyncMessage(ctx, m); err != nil {
			t.Fatalf("handle %d: %v", m.OutboxID, err)
		}
	}

	snap, _ := target.ReadAll(ctx, "Shopping")
	want := sheets.Snapshot{Header: []string{"item", "status"}, Rows: [][]string{{"milk", "purchased"}}}
	if !reflect.DeepEqual(snap, want) {
		t.Fatalf("got %+v want %+v", snap, want)
	}
	if w.Applied() != 2 {
		t.Fatalf("applied = %d, want 2", w.Applied())
	}
}

func TestHandleSyncMessageOutOfRangeIsPermanent(t *testing.T) {
	ctx := context.Background()
	w := NewSyncWorker(memory.New(), nil)

	// the sheet is empty, so the cell does not exist yet
	err := w.HandleSyncMessage(ctx, amqp.NewSyncMessage(3, sheets.CellMutation("Ledger", 0, 0, "x")))
	if !errors.Is(err, sheets.ErrOutOfRange) || !errors.Is(err, amqp.ErrPermanent) {
		t.Fatalf("expected permanent ErrOutOfRange, got %v", err)
	}
	if err := w.HandleSyncMessage(ctx, amqp.NewSyncMessage(3, sheets.AppendMutation("Ledger", [][]string{{"h"}}))); err != nil {
		t.Fatalf("a failed id must not be marked applied: %v", err)
	}
}
