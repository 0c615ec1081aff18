package postgres

import (
	"context"
	"fmt"
	"time"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/storage"
)

// BuyEventStore is a PostgreSQL implementation of storage.BuyEventStore backed by buy_events.
type BuyEventStore struct {
	pool *Pool
}

// NewBuyEventStore creates a new PostgreSQL event log.
func NewBuyEventStore(pool *Pool) *BuyEventStore {
	return &BuyEventStore{pool: pool}
}

// Compile-time interface check.
var _ storage.BuyEventStore = (*BuyEventStore)(nil)

// Append inserts an event. Enrichment fields are not persisted.
func (s *BuyEventStore) Append(ctx context.Context, e *domain.BuyEvent) error {
	if e == nil || e.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO buy_events (
			group_id, exchange, token_symbol, jetton_address, pool_address, lt,
			ton_amount, usd_amount, jetton_amount, buyer_address, tx_hash, observed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		e.GroupID, string(e.Exchange), e.TokenSymbol, e.JettonAddress, e.PoolAddress, e.LT,
		e.TONAmount, e.USDAmount, e.JettonAmount, e.BuyerAddress, e.TxHash, e.ObservedAt.UTC(),
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("append buy event: %w", err)
	}
	return nil
}

// Leaderboard aggregates events observed at or after since.
func (s *BuyEventStore) Leaderboard(ctx context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	rows, err := s.pool.Query(ctx, `
		SELECT
			COALESCE(NULLIF(token_symbol, ''), NULLIF(jetton_address, ''), $3) AS key,
			SUM(COALESCE(usd_amount, 0)) AS vol,
			COUNT(*) AS buys
		FROM buy_events
		WHERE observed_at >= $1
		GROUP BY key
		ORDER BY vol DESC, buys DESC, key ASC
		LIMIT $2
	`, since.UTC(), limit, domain.UnknownLeaderboardKey)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var result []domain.LeaderboardRow
	for rows.Next() {
		var (
			r    domain.LeaderboardRow
			buys int64
		)
		if err := rows.Scan(&r.Key, &r.VolumeUSD, &buys); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		r.Buys = int(buys)
		result = append(result, r)
	}
	return result, rows.Err()
}
