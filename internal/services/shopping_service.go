package services

import (
	"context"
	"fmt"

	"kakeibo/internal/core"
	"kakeibo/internal/sheets"
)

// ShoppingEntry is a parsed shopping row. Index is its 0-based data row,
// the handle used to toggle it.
type ShoppingEntry struct {
	Index int
	Item  core.ShoppingItem
}

// ListShopping returns the shopping list in sheet order. The first row of
// the sheet is always its header.
func (s *LedgerService) ListShopping(ctx context.Context) ([]ShoppingEntry, []RowWarning, error) {
	snap, err := s.store.ReadAll(ctx, s.shoppingSheet)
	if err != nil {
		return nil, nil, fmt.Errorf("read shopping list: %w", err)
	}
	var (
		out      []ShoppingEntry
		warnings []RowWarning
	)
	for i, cells := range snap.Rows {
		if blank(cells) {
			continue
		}
		item, err := core.ParseShoppingRow(cells)
		if err != nil {
			warnings = append(warnings, RowWarning{Row: i + 2, Err: err})
			s.rows.LogRowSkipped(ctx, s.shoppingSheet, i+2, err)
			s.observer.RowSkipped(s.shoppingSheet)
			continue
		}
		out = append(out, ShoppingEntry{Index: i, Item: item})
	}
	return out, warnings, nil
}

// AddShoppingItem appends item, writing the header first on an empty sheet.
// An empty status means pending.
func (s *LedgerService) AddShoppingItem(ctx context.Context, item core.ShoppingItem) (core.ShoppingItem, error) {
	if item.Status == "" {
		item.Status = core.Pending
	}
	if err := item.Validate(); err != nil {
		return core.ShoppingItem{}, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.store.ReadAll(ctx, s.shoppingSheet)
	if err != nil {
		return core.ShoppingItem{}, fmt.Errorf("read shopping list: %w", err)
	}
	var rows [][]string
	if snap.Empty() {
		rows = append(rows, append([]string(nil), core.ShoppingHeader...))
	}
	rows = append(rows, item.Row())
	if err := s.store.AppendMany(ctx, s.shoppingSheet, rows); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("append shopping item: %w", err)
	}
	s.logger.InfoContext(ctx, "Shopping item added", "item", item.Name)
	return item, nil
}

// ToggleShoppingItem flips the status of the item at data row index with a
// single cell write.
func (s *LedgerService) ToggleShoppingItem(ctx context.Context, index int) (core.ShoppingItem, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	snap, err := s.store.ReadAll(ctx, s.shoppingSheet)
	if err != nil {
		return core.ShoppingItem{}, fmt.Errorf("read shopping list: %w", err)
	}
	if index < 0 || index >= len(snap.Rows) {
		return core.ShoppingItem{}, fmt.Errorf("shopping item %d: %w", index, sheets.ErrOutOfRange)
	}
	item, err := core.ParseShoppingRow(snap.Rows[index])
	if err != nil {
		return core.ShoppingItem{}, err
	}
	item.Status = item.Status.Toggle()
	if err := s.store.UpdateCell(ctx, s.shoppingSheet, index, core.ShoppingStatusColumn, string(item.Status)); err != nil {
		return core.ShoppingItem{}, fmt.Errorf("update shopping status: %w", err)
	}
	s.logger.InfoContext(ctx, "Shopping item toggled", "item", item.Name, "status", string(item.Status))
	return item, nil
}

// ReplaceShopping overwrites the list; removing an item is a replace
// without it.
func (s *LedgerService) ReplaceShopping(ctx context.Context, items []core.ShoppingItem) error {
	snap := sheets.Snapshot{Header: append([]string(nil), core.ShoppingHeader...)}
	for i, item := range items {
		if item.Status == "" {
			item.Status = core.Pending
		}
		if err := item.Validate(); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
		snap.Rows = append(snap.Rows, item.Row())
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.store.ReplaceSnapshot(ctx, s.shoppingSheet, snap); err != nil {
		return fmt.Errorf("replace shopping list: %w", err)
	}
	return nil
}
