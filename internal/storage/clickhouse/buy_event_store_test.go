package clickhouse

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ton-buy-tracker/internal/domain"
)

func TestBuyEventStore_Leaderboard(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := NewBuyEventStore(conn)
	now := time.Now().UTC().Truncate(time.Millisecond)

	events := []*domain.BuyEvent{
		{Exchange: domain.ExchangeSTONfi, GroupID: 1, PoolAddress: "pa", LT: 1, TokenSymbol: ptr("A"), USDAmount: ptr(100.0), ObservedAt: now.Add(-time.Minute)},
		{Exchange: domain.ExchangeSTONfi, GroupID: 1, PoolAddress: "pa", LT: 2, TokenSymbol: ptr("A"), USDAmount: ptr(50.0), ObservedAt: now.Add(-2 * time.Minute)},
		{Exchange: domain.ExchangeDeDust, GroupID: 2, PoolAddress: "pb", LT: 1, TokenSymbol: ptr("B"), USDAmount: ptr(80.0), ObservedAt: now.Add(-3 * time.Minute)},
		{Exchange: domain.ExchangeDeDust, GroupID: 2, PoolAddress: "pb", LT: 2, TokenSymbol: ptr("B"), USDAmount: ptr(900.0), ObservedAt: now.Add(-time.Hour)},
		{Exchange: domain.ExchangeDeDust, GroupID: 3, PoolAddress: "pc", LT: 1, ObservedAt: now},
	}
	for _, e := range events {
		require.NoError(t, store.Append(ctx, e))
	}
	// Replays collapse under FINAL.
	require.NoError(t, store.Append(ctx, events[0]))

	rows, err := store.Leaderboard(ctx, now.Add(-15*time.Minute), 15)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, domain.LeaderboardRow{Key: "A", VolumeUSD: 150, Buys: 2}, rows[0])
	assert.Equal(t, domain.LeaderboardRow{Key: "B", VolumeUSD: 80, Buys: 1}, rows[1])
	assert.Equal(t, domain.LeaderboardRow{Key: domain.UnknownLeaderboardKey, VolumeUSD: 0, Buys: 1}, rows[2])
}

func TestParseDSN(t *testing.T) {
	opts, err := parseDSN("clickhouse://user:pw@ch.local/events?dial_timeout=3s")
	require.NoError(t, err)
	assert.Equal(t, []string{"ch.local:9000"}, opts.Addr)
	assert.Equal(t, "user", opts.Auth.Username)
	assert.Equal(t, "pw", opts.Auth.Password)
	assert.Equal(t, "events", opts.Auth.Database)
	assert.Equal(t, 3*time.Second, opts.DialTimeout)

	_, err = parseDSN("clickhouse:///nohost")
	assert.Error(t, err)
}
