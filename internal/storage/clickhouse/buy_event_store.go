package clickhouse

import (
	"context"
	"fmt"
	"time"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/storage"
)

// BuyEventStore implements storage.BuyEventStore using ClickHouse.
// The table is a ReplacingMergeTree keyed by (group_id, pool_address, lt); replayed
// appends are tolerated and collapsed by reading with FINAL.
type BuyEventStore struct {
	conn *Conn
}

// NewBuyEventStore creates a new BuyEventStore.
func NewBuyEventStore(conn *Conn) *BuyEventStore {
	return &BuyEventStore{conn: conn}
}

// Compile-time interface check.
var _ storage.BuyEventStore = (*BuyEventStore)(nil)

// Append inserts an event as a single-row batch.
func (s *BuyEventStore) Append(ctx context.Context, e *domain.BuyEvent) error {
	if e == nil || e.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO buy_events (
			group_id, exchange, token_symbol, jetton_address, pool_address, lt,
			ton_amount, usd_amount, jetton_amount, buyer_address, tx_hash, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		e.GroupID, string(e.Exchange), e.TokenSymbol, e.JettonAddress, e.PoolAddress, e.LT,
		e.TONAmount, e.USDAmount, e.JettonAmount, e.BuyerAddress, e.TxHash, e.ObservedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// Leaderboard aggregates events observed at or after since.
func (s *BuyEventStore) Leaderboard(ctx context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	query := `
		SELECT
			assumeNotNull(coalesce(nullIf(token_symbol, ''), nullIf(jetton_address, ''), ?)) AS key,
			sum(coalesce(usd_amount, 0)) AS vol,
			count() AS buys
		FROM buy_events FINAL
		WHERE observed_at >= ?
		GROUP BY key
		ORDER BY vol DESC, buys DESC, key ASC
		LIMIT ?
	`

	rows, err := s.conn.Query(ctx, query, domain.UnknownLeaderboardKey, since.UTC(), uint64(limit))
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	defer rows.Close()

	var result []domain.LeaderboardRow
	for rows.Next() {
		var (
			r    domain.LeaderboardRow
			buys uint64
		)
		if err := rows.Scan(&r.Key, &r.VolumeUSD, &buys); err != nil {
			return nil, fmt.Errorf("scan leaderboard row: %w", err)
		}
		r.Buys = int(buys)
		result = append(result, r)
	}
	return result, rows.Err()
}
