package storage

import (
	"context"
	"time"

	"ton-buy-tracker/internal/domain"
)

// CursorStore keeps the per-pool logical-time watermark.
// Rows are created lazily and never deleted.
type CursorStore interface {
	// Get returns the watermark for a pool, or 0 if the pool was never polled.
	Get(ctx context.Context, pool string) (int64, error)

	// Advance moves the watermark to lt. A smaller lt than the stored one is ignored.
	Advance(ctx context.Context, pool string, lt int64) error
}

// BuyEventStore is the append-only event log.
type BuyEventStore interface {
	// Append persists one event. Returns ErrDuplicateKey if (group_id, pool_address, lt) exists.
	Append(ctx context.Context, e *domain.BuyEvent) error

	// Leaderboard aggregates events observed at or after since, grouped by leaderboard key.
	// Rows are ordered by USD volume DESC, buy count DESC, key ASC; at most limit rows.
	Leaderboard(ctx context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error)
}

// ConfigStore provides access to watched_configs storage.
type ConfigStore interface {
	// ListEnabled returns enabled configurations ordered by group id.
	ListEnabled(ctx context.Context) ([]*domain.WatchedConfig, error)

	// List returns all configurations ordered by group id.
	List(ctx context.Context) ([]*domain.WatchedConfig, error)

	// Get retrieves a configuration by group id. Returns ErrNotFound if not exists.
	Get(ctx context.Context, groupID int64) (*domain.WatchedConfig, error)

	// Upsert validates and stores a configuration, replacing any previous one.
	// Validation failures wrap domain.ErrInvalidConfiguration.
	Upsert(ctx context.Context, c *domain.WatchedConfig) error
}
