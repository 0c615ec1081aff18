package notify

import (
	"context"
	"time"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/dedup"
	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/marketdata"
	"ton-buy-tracker/internal/observability"
	"ton-buy-tracker/internal/render"
)

// RankSource provides the current leaderboard positions.
type RankSource interface {
	Ranks() *domain.RankTable
}

// MetricsSource provides cached market snapshots.
type MetricsSource interface {
	GetOrFetch(ctx context.Context, jetton string, ttl time.Duration) *domain.TokenMetrics
}

// Settings configure where and how posts are delivered.
type Settings struct {
	TrendingChannel Destination // zero disables the channel cross-post
	ChannelTitle    string
	BookTrendingURL string
}

// DefaultEventTimeout bounds enrichment and delivery of a single event.
const DefaultEventTimeout = 30 * time.Second

// Stats summarizes one Dispatch call.
type Stats struct {
	GroupSent     int
	GroupFailed   int
	ChannelSent   int
	ChannelFailed int
	Suppressed    int
	Skipped       int
}

// Dispatcher enriches buy events and posts them.
type Dispatcher struct {
	channel  Channel
	ranks    RankSource
	metrics  MetricsSource
	gate     dedup.Gate
	settings Settings
	ttl      time.Duration
	timeout  time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithClock sets the clock used for de-duplication.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) {
		d.now = now
	}
}

// WithMetricsTTL overrides the cache TTL used for enrichment.
func WithMetricsTTL(ttl time.Duration) Option {
	return func(d *Dispatcher) {
		d.ttl = ttl
	}
}

// WithEventTimeout bounds the time spent on one event.
func WithEventTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.timeout = timeout
	}
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(channel Channel, ranks RankSource, metrics MetricsSource, gate dedup.Gate, settings Settings, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		channel:  channel,
		ranks:    ranks,
		metrics:  metrics,
		gate:     gate,
		settings: settings,
		ttl:      marketdata.PollTTL,
		timeout:  DefaultEventTimeout,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch posts events in order, each under its own timeout. Delivery failures
// are logged and counted, never retried. Once ctx is done the remaining events
// are logged and counted as skipped.
func (d *Dispatcher) Dispatch(ctx context.Context, cfg *domain.WatchedConfig, events []*domain.BuyEvent) Stats {
	var stats Stats
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			stats.Skipped++
			observability.RecordDeliverySkipped("group")
			d.logger.Warn("buy not delivered",
				zap.Int64("group_id", cfg.GroupID),
				zap.String("pool", ev.PoolAddress),
				zap.Int64("lt", ev.LT),
				zap.Error(err),
			)
			continue
		}
		evCtx, cancel := context.WithTimeout(ctx, d.timeout)
		d.dispatchOne(evCtx, cfg, ev, &stats)
		cancel()
	}
	return stats
}

func (d *Dispatcher) dispatchOne(ctx context.Context, cfg *domain.WatchedConfig, ev *domain.BuyEvent, stats *Stats) {
	ev = d.Enrich(ctx, cfg, ev)
	logger := d.logger.With(
		zap.Int64("group_id", cfg.GroupID),
		zap.String("pool", ev.PoolAddress),
		zap.Int64("lt", ev.LT),
	)

	group := ChatDestination(cfg.GroupID)
	_, err := d.channel.Send(ctx, group, render.GroupPost(ev, d.settings.BookTrendingURL), SendOptions{})
	observability.RecordDelivery("group", err)
	if err != nil {
		stats.GroupFailed++
		logger.Warn("group delivery failed", zap.Error(err))
	} else {
		stats.GroupSent++
	}

	if d.settings.TrendingChannel.IsZero() {
		return
	}

	seen, err := dedup.SeenOrMarkEvent(ctx, d.gate, ev, d.now())
	if err != nil {
		logger.Warn("dedup gate unavailable, posting anyway", zap.Error(err))
	}
	if seen {
		stats.Suppressed++
		observability.RecordDedupSuppressed()
		return
	}

	_, err = d.channel.Send(ctx, d.settings.TrendingChannel,
		render.ChannelPost(ev, d.settings.ChannelTitle),
		SendOptions{BookButtonURL: d.settings.BookTrendingURL})
	observability.RecordDelivery("channel", err)
	if err != nil {
		stats.ChannelFailed++
		logger.Warn("channel delivery failed", zap.Error(err))
		return
	}
	stats.ChannelSent++
}

// Enrich returns a copy of ev with rank, configured token identity, market
// metrics and links attached.
func (d *Dispatcher) Enrich(ctx context.Context, cfg *domain.WatchedConfig, ev *domain.BuyEvent) *domain.BuyEvent {
	out := *ev
	enriched := &out

	if rank, ok := d.ranks.Ranks().Rank(cfg.LeaderboardKey()); ok {
		enriched = enriched.WithRank(rank)
	}

	enriched.JettonAddress = cfg.JettonAddress
	sym := "TOKEN"
	if cfg.TokenSymbol != nil {
		sym = *cfg.TokenSymbol
	} else if ev.TokenSymbol != nil {
		sym = *ev.TokenSymbol
	}
	sym = domain.SafeSymbol(sym)
	enriched.TokenSymbol = &sym

	if cfg.JettonAddress == nil || *cfg.JettonAddress == "" {
		return enriched
	}
	m := d.metrics.GetOrFetch(ctx, *cfg.JettonAddress, d.ttl)
	return enriched.WithMetrics(m).WithLinks(BuildLinks(cfg, m))
}
