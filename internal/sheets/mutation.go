package sheets

import (
	"context"
	"fmt"
)

const (
	MutationAppend  MutationKind = "append"
	MutationReplace MutationKind = "replace"
	MutationCell    MutationKind = "update_cell"
)

type MutationKind string

// Mutation is one write to a row store, recorded so it can be replayed
// against another store.
type Mutation struct {
	Kind   MutationKind `json:"kind"`
	Sheet  string       `json:"sheet"`
	Header []string     `json:"header,omitempty"`
	Rows   [][]string   `json:"rows,omitempty"`
	Row    int          `json:"row,omitempty"`
	Col    int          `json:"col,omitempty"`
	Value  string       `json:"value,omitempty"`
}

func AppendMutation(sheet string, rows [][]string) Mutation {
	return Mutation{Kind: MutationAppend, Sheet: sheet, Rows: rows}
}

func ReplaceMutation(sheet string, snap Snapshot) Mutation {
	return Mutation{Kind: MutationReplace, Sheet: sheet, Header: snap.Header, Rows: snap.Rows}
}

func CellMutation(sheet string, row, col int, value string) Mutation {
	return Mutation{Kind: MutationCell, Sheet: sheet, Row: row, Col: col, Value: value}
}

func (m Mutation) Validate() error {
	if m.Sheet == "" {
		return fmt.Errorf("mutation %s: empty sheet", m.Kind)
	}
	switch m.Kind {
	case MutationAppend, MutationReplace:
		return nil
	case MutationCell:
		if m.Row < 0 || m.Col < 0 {
			return fmt.Errorf("mutation %s: %w", m.Kind, ErrOutOfRange)
		}
		return nil
	}
	return fmt.Errorf("unknown mutation kind %q", m.Kind)
}

// Apply replays m against store.
func (m Mutation) Apply(ctx context.Context, store RowStore) error {
	if err := m.Validate(); err != nil {
		return err
	}
	switch m.Kind {
	case MutationAppend:
		return store.AppendMany(ctx, m.Sheet, m.Rows)
	case MutationReplace:
		return store.ReplaceSnapshot(ctx, m.Sheet, Snapshot{Header: m.Header, Rows: m.Rows})
	default:
		return store.UpdateCell(ctx, m.Sheet, m.Row, m.Col, m.Value)
	}
}
