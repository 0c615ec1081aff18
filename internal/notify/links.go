package notify

import (
	"ton-buy-tracker/internal/domain"
)

// NativeTONAddress is the address DeDust uses for native TON in swap links.
const NativeTONAddress = "EQAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAM9c"

// BuildLinks returns Chart, STONfi, DeDust and Trade links for a configuration.
// Trade points at STONfi, then DeDust, then the chart.
func BuildLinks(cfg *domain.WatchedConfig, m *domain.TokenMetrics) []domain.Link {
	var chart, stonfi, dedust string
	if m != nil && m.ChartURL != nil {
		chart = *m.ChartURL
	}
	if pool, ok := cfg.PoolAddress(domain.ExchangeSTONfi); ok {
		stonfi = "https://app.ston.fi/swap?pool=" + pool
	}
	if _, ok := cfg.PoolAddress(domain.ExchangeDeDust); ok && cfg.JettonAddress != nil {
		dedust = "https://app.dedust.io/swap/" + *cfg.JettonAddress + "/" + NativeTONAddress
	}

	trade := stonfi
	if trade == "" {
		trade = dedust
	}
	if trade == "" {
		trade = chart
	}

	var links []domain.Link
	for _, l := range []domain.Link{
		{Label: "Chart", URL: chart},
		{Label: "STONfi", URL: stonfi},
		{Label: "DeDust", URL: dedust},
		{Label: "Trade", URL: trade},
	} {
		if l.URL != "" {
			links = append(links, l)
		}
	}
	return links
}
