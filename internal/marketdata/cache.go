// Package marketdata caches per-jetton market snapshots built from chain and market sources.
package marketdata

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"ton-buy-tracker/internal/dexscreener"
	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/observability"
	"ton-buy-tracker/internal/tonapi"
)

// TTLs per call site.
const (
	SetupTTL = 5 * time.Second
	PollTTL  = 15 * time.Second
)

// ChainSource is the subset of the chain API the cache reads.
type ChainSource interface {
	JettonInfo(ctx context.Context, jetton string) (*tonapi.JettonInfo, error)
	TONPriceUSD(ctx context.Context) (float64, error)
}

// MarketSource lists trading pairs for a token.
type MarketSource interface {
	Pairs(ctx context.Context, token string) ([]dexscreener.Pair, error)
}

// Cache holds one snapshot per jetton. Snapshots are shared between callers and
// must be treated as read-only.
type Cache struct {
	chain   ChainSource
	market  MarketSource
	now     func() time.Time
	logger  *zap.Logger
	entries *xsync.Map[string, *domain.TokenMetrics]
	flight  singleflight.Group
}

// Option configures Cache.
type Option func(*Cache)

// WithClock injects the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// NewCache creates a cache over the given sources.
func NewCache(chain ChainSource, market MarketSource, opts ...Option) *Cache {
	c := &Cache{
		chain:   chain,
		market:  market,
		now:     time.Now,
		logger:  zap.NewNop(),
		entries: xsync.NewMap[string, *domain.TokenMetrics](),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetOrFetch returns the snapshot for jetton if it is younger than ttl; otherwise it
// queries both sources, stores whatever they returned and returns it. It never fails:
// a snapshot with every field unknown is a valid result.
func (c *Cache) GetOrFetch(ctx context.Context, jetton string, ttl time.Duration) *domain.TokenMetrics {
	if m, ok := c.lookup(jetton, ttl); ok {
		observability.RecordCacheLookup(true)
		return m
	}
	observability.RecordCacheLookup(false)

	v, _, _ := c.flight.Do(jetton, func() (any, error) {
		// Another caller may have stored a fresh entry while we waited.
		if m, ok := c.lookup(jetton, ttl); ok {
			return m, nil
		}
		m := c.fetch(ctx, jetton)
		// A snapshot cut short by cancellation is returned but not cached.
		if ctx.Err() == nil {
			c.entries.Store(jetton, m)
		}
		return m, nil
	})
	return v.(*domain.TokenMetrics)
}

// Len returns the number of cached snapshots, including expired ones.
func (c *Cache) Len() int {
	return c.entries.Size()
}

func (c *Cache) lookup(jetton string, ttl time.Duration) (*domain.TokenMetrics, bool) {
	m, ok := c.entries.Load(jetton)
	if !ok || c.now().Sub(m.FetchedAt) >= ttl {
		return nil, false
	}
	return m, true
}

func (c *Cache) fetch(ctx context.Context, jetton string) *domain.TokenMetrics {
	var (
		info  *tonapi.JettonInfo
		pairs []dexscreener.Pair
		rate  *float64
	)

	// Each source is best-effort; errors are logged and leave fields unknown.
	var g errgroup.Group
	g.Go(func() error {
		start := time.Now()
		got, err := c.chain.JettonInfo(ctx, jetton)
		observability.RecordSourceCall("tonapi", "jetton_info", start, err)
		if err != nil {
			c.logger.Debug("jetton info unavailable", zap.String("jetton", jetton), zap.Error(err))
			return nil
		}
		info = got
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		got, err := c.market.Pairs(ctx, jetton)
		observability.RecordSourceCall("dexscreener", "pairs", start, err)
		if err != nil {
			c.logger.Debug("pairs unavailable", zap.String("jetton", jetton), zap.Error(err))
			return nil
		}
		pairs = got
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		got, err := c.chain.TONPriceUSD(ctx)
		observability.RecordSourceCall("tonapi", "rates", start, err)
		if err != nil {
			c.logger.Debug("ton rate unavailable", zap.Error(err))
			return nil
		}
		rate = &got
		return nil
	})
	_ = g.Wait()

	return build(info, pairs, rate, c.now())
}

func build(info *tonapi.JettonInfo, pairs []dexscreener.Pair, rate *float64, now time.Time) *domain.TokenMetrics {
	m := &domain.TokenMetrics{
		Pools:       dexscreener.PoolsByExchange(pairs),
		TONPriceUSD: rate,
		FetchedAt:   now,
	}
	if info != nil {
		m.Holders = info.Holders
		m.Symbol = info.Symbol
		m.Decimals = info.Decimals
	}

	if best := dexscreener.BestPair(pairs); best != nil {
		m.PriceUSD = best.Price()
		if best.Liquidity != nil && best.Liquidity.USD != nil {
			liq := *best.Liquidity.USD
			m.LiquidityUSD = &liq
		}
		if mc := best.MarketCapUSD(); mc != nil {
			v := *mc
			m.MCapUSD = &v
		}
		if best.URL != "" {
			u := best.URL
			m.ChartURL = &u
		}
		if best.PairAddress != "" {
			p := best.PairAddress
			m.BestPairAddress = &p
		}
		if m.Symbol == nil && best.BaseToken.Symbol != "" {
			s := best.BaseToken.Symbol
			m.Symbol = &s
		}
	}
	return m
}
