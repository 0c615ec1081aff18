package domain

import "time"

// Link is a named URL attached to a notification.
type Link struct {
	Label string
	URL   string
}

// BuyEvent is a detected buy on a watched pool.
// Corresponds to buy_events table; enrichment fields are attached after persistence
// and are never written back.
type BuyEvent struct {
	Exchange      Exchange
	GroupID       int64
	TokenSymbol   *string  // nullable
	JettonAddress *string  // nullable
	PoolAddress   string   // pool account the transaction was observed on
	LT            int64    // logical time of the pool transaction
	TONAmount     *float64 // native amount in TON (nullable)
	USDAmount     *float64 // USD equivalent (nullable)
	JettonAmount  *float64 // token units (nullable)
	BuyerAddress  *string  // nullable; unknown is a valid terminal value
	TxHash        *string  // nullable
	ObservedAt    time.Time

	// Enrichment
	Holders      *int64
	PriceUSD     *float64
	LiquidityUSD *float64
	MCapUSD      *float64
	TONPriceUSD  *float64
	Links        []Link
	Rank         *int
}

// LeaderboardKey returns the key this event is aggregated under.
func (e *BuyEvent) LeaderboardKey() string {
	return LeaderboardKey(e.TokenSymbol, e.JettonAddress)
}

// WithMetrics returns a copy of the event carrying market metrics.
// Fields the snapshot does not know keep the event's value.
func (e *BuyEvent) WithMetrics(m *TokenMetrics) *BuyEvent {
	out := *e
	if m == nil {
		return &out
	}
	out.Holders = firstNonNil(m.Holders, e.Holders)
	out.PriceUSD = firstNonNil(m.PriceUSD, e.PriceUSD)
	out.LiquidityUSD = firstNonNil(m.LiquidityUSD, e.LiquidityUSD)
	out.MCapUSD = firstNonNil(m.MCapUSD, e.MCapUSD)
	out.TONPriceUSD = firstNonNil(m.TONPriceUSD, e.TONPriceUSD)
	return &out
}

// WithRank returns a copy of the event with a leaderboard rank.
func (e *BuyEvent) WithRank(rank int) *BuyEvent {
	out := *e
	out.Rank = &rank
	return &out
}

// WithLinks returns a copy of the event with the given links.
func (e *BuyEvent) WithLinks(links []Link) *BuyEvent {
	out := *e
	out.Links = append([]Link(nil), links...)
	return &out
}

// Link looks up a link by label.
func (e *BuyEvent) Link(label string) (string, bool) {
	for _, l := range e.Links {
		if l.Label == label && l.URL != "" {
			return l.URL, true
		}
	}
	return "", false
}

func firstNonNil[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}
