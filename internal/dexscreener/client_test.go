package dexscreener

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 2, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func TestClient_Pairs_Primary(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/token-pairs/v1/ton/EQjetton", r.URL.Path)
		w.Write([]byte(`[
			{"dexId":"stonfi","pairAddress":"EQston","priceUsd":"0.0012","liquidity":{"usd":1000},"marketCap":50000,"url":"https://dexscreener.com/ton/ston"},
			{"dexId":"dedust","pairAddress":"EQdedust","priceUsd":"0.0013","liquidity":{"usd":5000},"fdv":60000}
		]`))
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetry(fastRetry()))
	pairs, err := client.Pairs(context.Background(), "EQjetton")
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	best := BestPair(pairs)
	require.NotNil(t, best)
	assert.Equal(t, "EQdedust", best.PairAddress)
	require.NotNil(t, best.Price())
	assert.InDelta(t, 0.0013, *best.Price(), 1e-12)
	require.NotNil(t, best.MarketCapUSD())
	assert.Equal(t, 60000.0, *best.MarketCapUSD())

	pools := PoolsByExchange(pairs)
	assert.Equal(t, "EQston", pools[domain.ExchangeSTONfi])
	assert.Equal(t, "EQdedust", pools[domain.ExchangeDeDust])
}

func TestClient_Pairs_FallbackWhenEmpty(t *testing.T) {
	var latestCalls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/token-pairs/v1/ton/EQjetton":
			w.Write([]byte(`[]`))
		case "/latest/dex/tokens/EQjetton":
			latestCalls.Add(1)
			w.Write([]byte(`{"pairs":[{"dexId":"ston_fi_v2","pairAddress":"EQv2","liquidity":{"usd":10}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetry(fastRetry()))
	pairs, err := client.Pairs(context.Background(), "EQjetton")
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	assert.Equal(t, int32(1), latestCalls.Load())
	assert.Equal(t, "EQv2", PoolsByExchange(pairs)[domain.ExchangeSTONfi])
}

func TestClient_Pairs_BothFail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(server.URL, WithRetry(fastRetry()))
	_, err := client.Pairs(context.Background(), "EQjetton")
	assert.Error(t, err)
}

func TestBestPair_TiesKeepInputOrder(t *testing.T) {
	liq := 100.0
	pairs := []Pair{
		{PairAddress: "none"},
		{PairAddress: "first"},
		{PairAddress: "second"},
	}
	pairs[1].Liquidity = &struct {
		USD *float64 `json:"usd"`
	}{USD: &liq}
	pairs[2].Liquidity = pairs[1].Liquidity

	assert.Equal(t, "first", BestPair(pairs).PairAddress)
	assert.Nil(t, BestPair(nil))
}

func TestPoolsByExchange_FirstWins(t *testing.T) {
	pools := PoolsByExchange([]Pair{
		{DexID: "dedust", PairAddress: "A"},
		{DexID: "DeDust", PairAddress: "B"},
		{DexID: "uniswap", PairAddress: "C"},
		{DexID: "stonfi"},
	})
	assert.Equal(t, map[domain.Exchange]string{domain.ExchangeDeDust: "A"}, pools)
}
