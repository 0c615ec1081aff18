package dexscreener

import (
	"strconv"
	"strings"

	"ton-buy-tracker/internal/domain"
)

// Pair is a DexScreener trading pair.
type Pair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	Labels      []string `json:"labels"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   Token    `json:"baseToken"`
	QuoteToken  Token    `json:"quoteToken"`
	PriceUSD    string   `json:"priceUsd"`
	Liquidity   *struct {
		USD *float64 `json:"usd"`
	} `json:"liquidity"`
	FDV       *float64 `json:"fdv"`
	MarketCap *float64 `json:"marketCap"`
}

// Token is one side of a pair.
type Token struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// LiquidityUSD returns pool liquidity; missing counts as 0.
func (p *Pair) LiquidityUSD() float64 {
	if p.Liquidity == nil || p.Liquidity.USD == nil {
		return 0
	}
	return *p.Liquidity.USD
}

// Price returns the USD price if it parses.
func (p *Pair) Price() *float64 {
	if p.PriceUSD == "" {
		return nil
	}
	v, err := strconv.ParseFloat(p.PriceUSD, 64)
	if err != nil {
		return nil
	}
	return &v
}

// MarketCapUSD returns market cap, falling back to FDV when absent or zero.
func (p *Pair) MarketCapUSD() *float64 {
	if p.MarketCap != nil && *p.MarketCap != 0 {
		return p.MarketCap
	}
	return p.FDV
}

// BestPair returns the pair with the highest liquidity; ties keep input order.
func BestPair(pairs []Pair) *Pair {
	var best *Pair
	for i := range pairs {
		if best == nil || pairs[i].LiquidityUSD() > best.LiquidityUSD() {
			best = &pairs[i]
		}
	}
	return best
}

// PoolsByExchange returns the first pair address seen per supported exchange.
func PoolsByExchange(pairs []Pair) map[domain.Exchange]string {
	pools := make(map[domain.Exchange]string)
	for _, p := range pairs {
		if p.PairAddress == "" {
			continue
		}
		dexID := p.DexID
		if dexID == "" {
			dexID = strings.Join(p.Labels, " ")
		}
		ex, ok := domain.ExchangeFromDexID(dexID)
		if !ok {
			continue
		}
		if _, seen := pools[ex]; !seen {
			pools[ex] = p.PairAddress
		}
	}
	return pools
}
