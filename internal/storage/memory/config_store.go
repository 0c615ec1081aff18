package memory

import (
	"context"
	"sort"
	"sync"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/storage"
)

// ConfigStore is an in-memory implementation of storage.ConfigStore.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[int64]*domain.WatchedConfig
}

// NewConfigStore creates a new in-memory configuration store.
func NewConfigStore() *ConfigStore {
	return &ConfigStore{
		configs: make(map[int64]*domain.WatchedConfig),
	}
}

// Compile-time interface check.
var _ storage.ConfigStore = (*ConfigStore)(nil)

// ListEnabled returns copies of enabled configurations ordered by group id.
func (s *ConfigStore) ListEnabled(_ context.Context) ([]*domain.WatchedConfig, error) {
	return s.list(true), nil
}

// List returns copies of all configurations ordered by group id.
func (s *ConfigStore) List(_ context.Context) ([]*domain.WatchedConfig, error) {
	return s.list(false), nil
}

func (s *ConfigStore) list(enabledOnly bool) []*domain.WatchedConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.WatchedConfig, 0, len(s.configs))
	for _, c := range s.configs {
		if enabledOnly && !c.Enabled {
			continue
		}
		result = append(result, c.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].GroupID < result[j].GroupID
	})
	return result
}

// Get retrieves a configuration by group id.
func (s *ConfigStore) Get(_ context.Context, groupID int64) (*domain.WatchedConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.configs[groupID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return c.Clone(), nil
}

// Upsert validates and stores a copy of the configuration.
func (s *ConfigStore) Upsert(_ context.Context, c *domain.WatchedConfig) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.configs[c.GroupID] = c.Clone()
	return nil
}
