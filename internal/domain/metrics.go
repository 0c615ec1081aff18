package domain

import "time"

// TokenMetrics is a market snapshot for a jetton, combined from chain and market sources.
// Any field may be unknown.
type TokenMetrics struct {
	Holders         *int64
	Symbol          *string
	Decimals        *int
	PriceUSD        *float64
	LiquidityUSD    *float64
	MCapUSD         *float64
	ChartURL        *string
	BestPairAddress *string
	Pools           map[Exchange]string
	TONPriceUSD     *float64
	FetchedAt       time.Time
}

// Pool returns the discovered pool address for an exchange.
func (m *TokenMetrics) Pool(ex Exchange) (string, bool) {
	if m == nil || m.Pools == nil {
		return "", false
	}
	addr, ok := m.Pools[ex]
	return addr, ok && addr != ""
}
