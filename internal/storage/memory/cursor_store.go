package memory

import (
	"context"
	"sync"

	"ton-buy-tracker/internal/storage"
)

// CursorStore is an in-memory implementation of storage.CursorStore.
type CursorStore struct {
	mu      sync.RWMutex
	cursors map[string]int64
}

// NewCursorStore creates a new in-memory cursor store.
func NewCursorStore() *CursorStore {
	return &CursorStore{
		cursors: make(map[string]int64),
	}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get returns the watermark for a pool, or 0 if unknown.
func (s *CursorStore) Get(_ context.Context, pool string) (int64, error) {
	if pool == "" {
		return 0, storage.ErrInvalidInput
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.cursors[pool], nil
}

// Advance moves the watermark forward; never backwards.
func (s *CursorStore) Advance(_ context.Context, pool string, lt int64) error {
	if pool == "" || lt < 0 {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if lt > s.cursors[pool] {
		s.cursors[pool] = lt
	}
	return nil
}
