// Package sheets defines the row-store ports the ledger is kept behind.
// Adapters live in subpackages (google, memory) and in internal/storage.
package sheets

import (
	"context"
	"errors"
)

// ErrUnavailable wraps every connectivity, quota or credential failure of a
// row store.
var ErrUnavailable = errors.New("row store unavailable")

// ErrOutOfRange is returned by UpdateCell for a row or column that does
// not exist.
var ErrOutOfRange = errors.New("cell out of range")

// Snapshot is the full content of one sheet. The first row of a sheet is
// its Header; the data rows follow.
type Snapshot struct {
	Header []string
	Rows   [][]string
}

// Ports for outbound adapters.
type (
	RowReader interface {
		ReadAll(ctx context.Context, sheet string) (Snapshot, error)
	}

	// RowAppender appends rows after the last row, preserving the order given.
	// A row appended to an empty sheet is read back as its header.
	RowAppender interface {
		Append(ctx context.Context, sheet string, row []string) error
		AppendMany(ctx context.Context, sheet string, rows [][]string) error
	}

	// SnapshotReplacer replaces the whole sheet. It is the only edit
	// primitive of the ledger; last writer wins.
	SnapshotReplacer interface {
		ReplaceSnapshot(ctx context.Context, sheet string, snap Snapshot) error
	}

	// CellUpdater writes one cell. row is the 0-based data row index (the
	// header is not counted) and col the 0-based column.
	CellUpdater interface {
		UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
	}

	RowStore interface {
		RowReader
		RowAppender
		SnapshotReplacer
		CellUpdater
	}
)

// Clone deep-copies s so callers can hand it out without sharing rows.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Header: append([]string(nil), s.Header...)}
	if s.Rows != nil {
		out.Rows = make([][]string, len(s.Rows))
		for i, r := range s.Rows {
			out.Rows[i] = append([]string(nil), r...)
		}
	}
	return out
}

// Empty reports whether the sheet holds neither header nor rows.
func (s Snapshot) Empty() bool { return len(s.Header) == 0 && len(s.Rows) == 0 }
