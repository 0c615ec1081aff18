package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testRawAddr      = "0:" + "83dfd552e63729b472fcbcc8c45ebcc6691702558b68ec7527e1ba403a0f31a8"
	testFriendlyAddr = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"
)

func ptr[T any](v T) *T { return &v }

func TestExchangeFromDexID(t *testing.T) {
	tests := []struct {
		in   string
		want Exchange
		ok   bool
	}{
		{"stonfi", ExchangeSTONfi, true},
		{"ston_fi_v2", ExchangeSTONfi, true},
		{"DeDust", ExchangeDeDust, true},
		{"de_dust", ExchangeDeDust, true},
		{"de dust", ExchangeDeDust, true},
		{"megaton", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ExchangeFromDexID(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestLeaderboardKey(t *testing.T) {
	assert.Equal(t, "PUNK", LeaderboardKey(ptr("PUNK"), ptr("EQx")))
	assert.Equal(t, "EQx", LeaderboardKey(nil, ptr("EQx")))
	assert.Equal(t, "EQx", LeaderboardKey(ptr(""), ptr("EQx")))
	assert.Equal(t, UnknownLeaderboardKey, LeaderboardKey(nil, nil))
}

func TestRankTable(t *testing.T) {
	table := NewRankTable([]LeaderboardRow{
		{Key: "A", VolumeUSD: 150, Buys: 1},
		{Key: "B", VolumeUSD: 80, Buys: 1},
	}, time.Unix(100, 0))

	r, ok := table.Rank("A")
	require.True(t, ok)
	assert.Equal(t, 1, r)
	r, ok = table.Rank("B")
	require.True(t, ok)
	assert.Equal(t, 2, r)
	_, ok = table.Rank("C")
	assert.False(t, ok)
	assert.Equal(t, 2, table.Len())

	var empty *RankTable
	_, ok = empty.Rank("A")
	assert.False(t, ok)
	assert.Zero(t, empty.Len())
}

func TestBuyEvent_WithMetricsKeepsKnownValues(t *testing.T) {
	ev := &BuyEvent{PriceUSD: ptr(1.5), Holders: ptr(int64(3))}

	out := ev.WithMetrics(&TokenMetrics{Holders: ptr(int64(10)), MCapUSD: ptr(99.0)})

	assert.Equal(t, int64(10), *out.Holders)
	assert.Equal(t, 1.5, *out.PriceUSD)
	assert.Equal(t, 99.0, *out.MCapUSD)
	assert.Nil(t, ev.MCapUSD, "original event must not change")
	assert.Equal(t, int64(3), *ev.Holders)
}

func TestBuyEvent_WithRankAndLinks(t *testing.T) {
	ev := &BuyEvent{}
	out := ev.WithRank(4).WithLinks([]Link{{Label: "Chart", URL: "u"}, {Label: "Trade"}})

	assert.Nil(t, ev.Rank)
	assert.Equal(t, 4, *out.Rank)
	url, ok := out.Link("Chart")
	assert.True(t, ok)
	assert.Equal(t, "u", url)
	_, ok = out.Link("Trade")
	assert.False(t, ok)
}

func TestValidateAddress(t *testing.T) {
	assert.NoError(t, ValidateAddress(testRawAddr))
	assert.NoError(t, ValidateAddress(testFriendlyAddr))
	assert.NoError(t, ValidateAddress(" "+testFriendlyAddr+" "))

	for _, bad := range []string{"", "0:abc", "EQ123", strings.Repeat("!", 48)} {
		err := ValidateAddress(bad)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, bad)
	}
}

func TestParseMinBuy(t *testing.T) {
	v, err := ParseMinBuy(" 0.5 ")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	for _, bad := range []string{"abc", "-1", "NaN", ""} {
		_, err := ParseMinBuy(bad)
		assert.ErrorIs(t, err, ErrInvalidConfiguration, bad)
	}
}

func TestWatchedConfig_Validate(t *testing.T) {
	cfg := &WatchedConfig{GroupID: -100123, JettonAddress: ptr(testFriendlyAddr)}
	cfg.SetPool(ExchangeSTONfi, testRawAddr)
	require.NoError(t, cfg.Validate())

	bad := cfg.Clone()
	bad.Pools[ExchangeDeDust] = "nope"
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfiguration)
	assert.NotContains(t, cfg.Pools, ExchangeDeDust, "clone must not share pools")

	bad = cfg.Clone()
	bad.MinBuyTON = -1
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfiguration)

	bad = cfg.Clone()
	bad.GroupID = 0
	assert.ErrorIs(t, bad.Validate(), ErrInvalidConfiguration)
}

func TestWatchedConfig_SetPoolClears(t *testing.T) {
	cfg := &WatchedConfig{}
	cfg.SetPool(ExchangeDeDust, "x")
	_, ok := cfg.PoolAddress(ExchangeDeDust)
	assert.True(t, ok)

	cfg.SetPool(ExchangeDeDust, "")
	_, ok = cfg.PoolAddress(ExchangeDeDust)
	assert.False(t, ok)
}

func TestSafeSymbol(t *testing.T) {
	assert.Equal(t, "PUNK", SafeSymbol(" PU-NK "))
	assert.Equal(t, "TOKEN", SafeSymbol("💎"))
	assert.Equal(t, "ABCDEFGHIJKLMNOP", SafeSymbol("ABCDEFGHIJKLMNOPQRS"))
	assert.Equal(t, "$DOGS_2", SafeSymbol("$DOGS_2"))
}
