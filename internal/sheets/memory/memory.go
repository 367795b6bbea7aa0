// Package memory is an in-process row store used for development and tests.
package memory

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	ports "kakeibo/internal/sheets"
)

// Store keeps every sheet as a grid of rows; row 0 is the header.
type Store struct {
	mu     sync.Mutex
	sheets map[string][][]string
}

var _ ports.RowStore = (*Store)(nil)

func New() *Store {
	return &Store{sheets: map[string][][]string{}}
}

// NewFromFiles seeds one sheet per "<sheet>.csv" file found in dir. A
// missing directory yields an empty store.
func NewFromFiles(dir string) (*Store, error) {
	s := New()
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".csv") {
			continue
		}
		grid, err := readCSV(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		s.sheets[strings.TrimSuffix(e.Name(), ".csv")] = grid
	}
	return s, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed %s: %w", path, err)
	}
	defer f.Close()
	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.Comment = '#'
	grid, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse seed %s: %w", path, err)
	}
	return grid, nil
}

func (s *Store) ReadAll(_ context.Context, sheet string) (ports.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	grid := s.sheets[sheet]
	if len(grid) == 0 {
		return ports.Snapshot{}, nil
	}
	snap := ports.Snapshot{Header: grid[0], Rows: grid[1:]}
	return snap.Clone(), nil
}

func (s *Store) Append(ctx context.Context, sheet string, row []string) error {
	return s.AppendMany(ctx, sheet, [][]string{row})
}

func (s *Store) AppendMany(_ context.Context, sheet string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range rows {
		s.sheets[sheet] = append(s.sheets[sheet], append([]string(nil), r...))
	}
	return nil
}

// ReplaceSnapshot swaps the sheet atomically.
func (s *Store) ReplaceSnapshot(_ context.Context, sheet string, snap ports.Snapshot) error {
	c := snap.Clone()
	grid := make([][]string, 0, len(c.Rows)+1)
	if len(c.Header) > 0 {
		grid = append(grid, c.Header)
	}
	grid = append(grid, c.Rows...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[sheet] = grid
	return nil
}

func (s *Store) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	grid := s.sheets[sheet]
	if row < 0 || col < 0 || row+1 >= len(grid) {
		return fmt.Errorf("%w: %s row %d col %d", ports.ErrOutOfRange, sheet, row, col)
	}
	r := grid[row+1]
	for len(r) <= col {
		r = append(r, "")
	}
	r[col] = value
	grid[row+1] = r
	return nil
}
