// Package backend builds the row store selected by configuration.
package backend

import (
	"context"

	"kakeibo/internal/cache"
	"kakeibo/internal/sheets"
)

type BackendType string

const (
	MemoryBackend BackendType = "memory"
	SheetsBackend BackendType = "sheets"
	SQLiteBackend BackendType = "sqlite"
)

func (t BackendType) IsValid() bool {
	switch t {
	case MemoryBackend, SheetsBackend, SQLiteBackend:
		return true
	}
	return false
}

func (t BackendType) String() string { return string(t) }

// CleanupFunc releases resources held by a backend.
type CleanupFunc func(ctx context.Context) error

// Backend is an opened row store plus its lifecycle hooks.
type Backend struct {
	Type  BackendType
	Store sheets.RowStore
	// Ready reports whether the store can serve reads.
	Ready func(ctx context.Context) error
	// Start launches background work such as outbox replication; may be nil.
	Start   func(ctx context.Context) error
	Cleanup CleanupFunc
	// CacheStats is set when reads go through the snapshot cache.
	CacheStats func() cache.Stats
}
