package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/storage"
)

const (
	poolA  = "0:1111111111111111111111111111111111111111111111111111111111111111"
	poolB  = "0:3333333333333333333333333333333333333333333333333333333333333333"
	jetton = "0:2222222222222222222222222222222222222222222222222222222222222222"
)

func TestCursorStore_GetAdvance(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewCursorStore(pool)

	lt, err := store.Get(ctx, poolA)
	require.NoError(t, err)
	assert.Equal(t, int64(0), lt)

	require.NoError(t, store.Advance(ctx, poolA, 9))
	require.NoError(t, store.Advance(ctx, poolA, 3))

	lt, err = store.Get(ctx, poolA)
	require.NoError(t, err)
	assert.Equal(t, int64(9), lt, "cursor must not move backwards")

	require.NoError(t, store.Advance(ctx, poolA, 12))
	lt, err = store.Get(ctx, poolA)
	require.NoError(t, err)
	assert.Equal(t, int64(12), lt)
}

func TestBuyEventStore_AppendAndLeaderboard(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBuyEventStore(pool)
	now := time.Now().UTC().Truncate(time.Millisecond)

	events := []*domain.BuyEvent{
		{Exchange: domain.ExchangeSTONfi, GroupID: 1, PoolAddress: poolA, LT: 1, TokenSymbol: ptr("A"), USDAmount: ptr(100.0), TONAmount: ptr(20.0), ObservedAt: now.Add(-time.Minute)},
		{Exchange: domain.ExchangeSTONfi, GroupID: 1, PoolAddress: poolA, LT: 2, TokenSymbol: ptr("A"), USDAmount: ptr(50.0), ObservedAt: now.Add(-2 * time.Minute)},
		{Exchange: domain.ExchangeDeDust, GroupID: 2, PoolAddress: poolB, LT: 1, TokenSymbol: ptr("B"), USDAmount: ptr(80.0), ObservedAt: now.Add(-3 * time.Minute)},
		{Exchange: domain.ExchangeDeDust, GroupID: 2, PoolAddress: poolB, LT: 2, TokenSymbol: ptr("B"), USDAmount: ptr(1000.0), ObservedAt: now.Add(-time.Hour)},
		{Exchange: domain.ExchangeDeDust, GroupID: 3, PoolAddress: poolB, LT: 3, JettonAddress: ptr(jetton), ObservedAt: now},
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, e))
	}

	err := store.Append(ctx, events[0])
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	rows, err := store.Leaderboard(ctx, now.Add(-15*time.Minute), 15)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, domain.LeaderboardRow{Key: "A", VolumeUSD: 150, Buys: 2}, rows[0])
	assert.Equal(t, domain.LeaderboardRow{Key: "B", VolumeUSD: 80, Buys: 1}, rows[1])
	assert.Equal(t, domain.LeaderboardRow{Key: jetton, VolumeUSD: 0, Buys: 1}, rows[2])
}

func TestConfigStore_UpsertAndList(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewConfigStore(pool)

	_, err := store.Get(ctx, -100)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	cfg := &domain.WatchedConfig{
		GroupID:       -100,
		Enabled:       true,
		TokenSymbol:   ptr("FISH"),
		JettonAddress: ptr(jetton),
		Pools: map[domain.Exchange]string{
			domain.ExchangeSTONfi: poolA,
			domain.ExchangeDeDust: poolB,
		},
		MinBuyTON: 2.5,
	}
	require.NoError(t, store.Upsert(ctx, cfg))
	require.NoError(t, store.Upsert(ctx, &domain.WatchedConfig{GroupID: 5}))

	got, err := store.Get(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)

	cfg.Enabled = false
	cfg.SetPool(domain.ExchangeDeDust, "")
	require.NoError(t, store.Upsert(ctx, cfg))

	got, err = store.Get(ctx, -100)
	require.NoError(t, err)
	assert.False(t, got.Enabled)
	_, ok := got.PoolAddress(domain.ExchangeDeDust)
	assert.False(t, ok)

	enabled, err := store.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)

	all, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, int64(-100), all[0].GroupID)

	err = store.Upsert(ctx, &domain.WatchedConfig{GroupID: 9, MinBuyTON: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)
}
