// Package cache holds short-lived sheet snapshots in front of a slow row
// store.
package cache

import (
	"context"
	"sync"
	"time"

	"kakeibo/internal/log"
	"kakeibo/internal/sheets"
)

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Store is a read-through snapshot cache over a RowStore. Every write
// through it drops the cached snapshot of the sheet it touched.
type Store struct {
	inner     sheets.RowStore
	snapshots *LRUCache[sheets.Snapshot]
	logger    *log.Logger

	// gens counts invalidations per sheet. A read only caches its snapshot
	// when no invalidation happened while it was in flight.
	mu   sync.Mutex
	gens map[string]uint64
}

var _ sheets.RowStore = (*Store)(nil)

func NewStore(inner sheets.RowStore, ttl time.Duration, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Discard()
	}
	return &Store{
		inner:     inner,
		snapshots: NewLRUCache[sheets.Snapshot](16, ttl),
		logger:    logger.WithComponent(log.ComponentCache),
		gens:      make(map[string]uint64),
	}
}

func (s *Store) ReadAll(ctx context.Context, sheet string) (sheets.Snapshot, error) {
	if snap, ok := s.snapshots.Get(sheet); ok {
		return snap.Clone(), nil
	}
	s.mu.Lock()
	gen := s.gens[sheet]
	s.mu.Unlock()

	snap, err := s.inner.ReadAll(ctx, sheet)
	if err != nil {
		return sheets.Snapshot{}, err
	}

	s.mu.Lock()
	fresh := s.gens[sheet] == gen
	if fresh {
		s.snapshots.Set(sheet, snap.Clone())
	}
	s.mu.Unlock()
	if fresh {
		s.logger.DebugContext(ctx, "Cached sheet snapshot", log.FieldSheet, sheet, log.FieldRows, len(snap.Rows))
	}
	return snap, nil
}

func (s *Store) Append(ctx context.Context, sheet string, row []string) error {
	defer s.Invalidate(sheet)
	return s.inner.Append(ctx, sheet, row)
}

func (s *Store) AppendMany(ctx context.Context, sheet string, rows [][]string) error {
	defer s.Invalidate(sheet)
	return s.inner.AppendMany(ctx, sheet, rows)
}

func (s *Store) ReplaceSnapshot(ctx context.Context, sheet string, snap sheets.Snapshot) error {
	defer s.Invalidate(sheet)
	return s.inner.ReplaceSnapshot(ctx, sheet, snap)
}

func (s *Store) UpdateCell(ctx context.Context, sheet string, row, col int, value string) error {
	defer s.Invalidate(sheet)
	return s.inner.UpdateCell(ctx, sheet, row, col, value)
}

func (s *Store) Invalidate(sheet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gens[sheet]++
	s.snapshots.Delete(sheet)
}

func (s *Store) Stats() Stats {
	return s.snapshots.Stats()
}

func (s *Store) CleanExpired() int {
	return s.snapshots.CleanExpired()
}

// Manager periodically cleans registered caches.
type Manager struct {
	caches      []Cleaner
	logger      *log.Logger
	stopCleanup chan struct{}
	cleanupDone chan struct{}
}

func NewManager(logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Discard()
	}
	return &Manager{
		logger:      logger.WithComponent(log.ComponentCache),
		stopCleanup: make(chan struct{}),
		cleanupDone: make(chan struct{}),
	}
}

func (m *Manager) Register(c Cleaner) {
	m.caches = append(m.caches, c)
}

// StartCleanup begins periodic cleanup; Stop must be called exactly once
// afterwards.
func (m *Manager) StartCleanup(interval time.Duration) {
	go m.cleanup(interval)
}

func (m *Manager) cleanup(interval time.Duration) {
	defer close(m.cleanupDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			total := 0
			for _, c := range m.caches {
				total += c.CleanExpired()
			}
			if total > 0 {
				m.logger.Debug("Cleaned expired cache entries", "count", total)
			}
		case <-m.stopCleanup:
			return
		}
	}
}

func (m *Manager) Stop() {
	close(m.stopCleanup)
	<-m.cleanupDone
}
