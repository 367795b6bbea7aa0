package sheets_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"kakeibo/internal/sheets"
	"kakeibo/internal/sheets/memory"
)

func TestMutationApplyReplaysWrites(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	muts := []sheets.Mutation{
		sheets.ReplaceMutation("Shopping", sheets.Snapshot{Header: []string{"item", "status"}}),
		sheets.AppendMutation("Shopping", [][]string{{"milk", "pending"}, {"eggs", "pending"}}),
		sheets.CellMutation("Shopping", 1, 1, "purchased"),
	}
	for _, m := range muts {
		if err := m.Apply(ctx, store); err != nil {
			t.Fatalf("apply %s: %v", m.Kind, err)
		}
	}
	got, _ := store.ReadAll(ctx, "Shopping")
	want := sheets.Snapshot{
		Header: []string{"item", "status"},
		Rows:   [][]string{{"milk", "pending"}, {"eggs", "purchased"}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestMutationValidate(t *testing.T) {
	bads := []sheets.Mutation{
		{Kind: sheets.MutationAppend},
		{Kind: "delete", Sheet: "Ledger"},
		sheets.CellMutation("Ledger", -1, 0, "x"),
	}
	for i, m := range bads {
		if err := m.Apply(context.Background(), memory.New()); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
	if err := sheets.CellMutation("Ledger", 0, -2, "x").Validate(); !errors.Is(err, sheets.ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestSnapshotClone(t *testing.T) {
	s := sheets.Snapshot{Header: []string{"a"}, Rows: [][]string{{"1"}}}
	c := s.Clone()
	c.Rows[0][0] = "2"
	c.Header[0] = "b"
	if s.Rows[0][0] != "1" || s.Header[0] != "a" {
		t.Fatalf("clone shares memory")
	}
	if !(sheets.Snapshot{}).Empty() || s.Empty() {
		t.Fatalf("empty detection broken")
	}
}
