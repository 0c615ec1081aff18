package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ton-buy-tracker/internal/storage"
)

// CursorStore is a PostgreSQL implementation of storage.CursorStore backed by pool_cursors.
type CursorStore struct {
	pool *Pool
}

// NewCursorStore creates a new PostgreSQL cursor store.
func NewCursorStore(pool *Pool) *CursorStore {
	return &CursorStore{pool: pool}
}

// Compile-time interface check.
var _ storage.CursorStore = (*CursorStore)(nil)

// Get returns the watermark for a pool, or 0 if no row exists yet.
func (s *CursorStore) Get(ctx context.Context, pool string) (int64, error) {
	if pool == "" {
		return 0, storage.ErrInvalidInput
	}

	var lt int64
	err := s.pool.QueryRow(ctx, `
		SELECT last_lt FROM pool_cursors WHERE pool_address = $1
	`, pool).Scan(&lt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("get cursor: %w", err)
	}
	return lt, nil
}

// Advance upserts the watermark. GREATEST keeps it from moving backwards.
func (s *CursorStore) Advance(ctx context.Context, pool string, lt int64) error {
	if pool == "" || lt < 0 {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO pool_cursors (pool_address, last_lt, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (pool_address) DO UPDATE
		SET last_lt = GREATEST(pool_cursors.last_lt, EXCLUDED.last_lt),
		    updated_at = NOW()
	`, pool, lt)
	if err != nil {
		return fmt.Errorf("advance cursor: %w", err)
	}
	return nil
}
