package dedup

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process Gate. Expired entries are swept on every call.
type Memory struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

// NewMemory creates a gate with the given window; zero selects DefaultWindow.
func NewMemory(window time.Duration) *Memory {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Memory{
		window: window,
		seen:   make(map[string]time.Time),
	}
}

// Compile-time interface check.
var _ Gate = (*Memory)(nil)

// SeenOrMark implements Gate. It never fails.
func (m *Memory) SeenOrMark(_ context.Context, fingerprint string, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for fp, at := range m.seen {
		if now.Sub(at) > m.window {
			delete(m.seen, fp)
		}
	}

	if _, live := m.seen[fingerprint]; live {
		return true, nil
	}
	m.seen[fingerprint] = now
	return false, nil
}

// Len returns the number of live entries as of the last call.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.seen)
}
