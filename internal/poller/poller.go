// Package poller detects new buys on watched pools using a per-pool
// logical-time cursor.
package poller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alitto/pond/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/extractor"
	"ton-buy-tracker/internal/jsontree"
	"ton-buy-tracker/internal/observability"
	"ton-buy-tracker/internal/storage"
	"ton-buy-tracker/internal/tonapi"
)

// DefaultLimit is how many recent transactions are fetched per pool.
const DefaultLimit = 25

// TransactionSource is the chain data needed for polling.
type TransactionSource interface {
	AccountTransactions(ctx context.Context, account string, limit int) ([]tonapi.Transaction, error)
	Trace(ctx context.Context, traceID string) (jsontree.Value, error)
}

// Batch is the result of polling one configuration.
type Batch struct {
	Config *domain.WatchedConfig
	Events []*domain.BuyEvent
	Err    error
}

// Poller polls pools and persists detected buys.
type Poller struct {
	source      TransactionSource
	cursors     storage.CursorStore
	events      storage.BuyEventStore
	limit       int
	concurrency int
	now         func() time.Time
	logger      *zap.Logger
}

// Option configures a Poller.
type Option func(*Poller)

// WithLimit sets how many transactions are fetched per pool.
func WithLimit(n int) Option {
	return func(p *Poller) { p.limit = n }
}

// WithConcurrency caps how many configurations are polled in parallel.
// Zero, the default, polls all of them at once.
func WithConcurrency(n int) Option {
	return func(p *Poller) { p.concurrency = n }
}

// WithClock sets the clock used for ObservedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// New creates a poller.
func New(source TransactionSource, cursors storage.CursorStore, events storage.BuyEventStore, opts ...Option) *Poller {
	p := &Poller{
		source:      source,
		cursors:     cursors,
		events:      events,
		limit:       DefaultLimit,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PollAll polls every configuration on a worker pool. Batches are returned
// in input order.
func (p *Poller) PollAll(ctx context.Context, configs []*domain.WatchedConfig) []Batch {
	batches := make([]Batch, len(configs))
	for i, cfg := range configs {
		batches[i] = Batch{Config: cfg}
	}
	p.pollEach(ctx, configs, func(i int, b Batch) {
		batches[i] = b
	})
	return batches
}

// PollEach polls every configuration on a worker pool and hands each batch to
// handle as soon as that configuration is done. handle runs on the worker and
// may be called concurrently. PollEach returns after every handle call returns.
func (p *Poller) PollEach(ctx context.Context, configs []*domain.WatchedConfig, handle func(Batch)) {
	p.pollEach(ctx, configs, func(_ int, b Batch) {
		handle(b)
	})
}

func (p *Poller) pollEach(ctx context.Context, configs []*domain.WatchedConfig, handle func(int, Batch)) {
	if len(configs) == 0 {
		return
	}

	workers := len(configs)
	if p.concurrency > 0 {
		workers = min(p.concurrency, workers)
	}
	pool := pond.NewPool(workers, pond.WithContext(ctx))
	defer pool.StopAndWait()

	group := pool.NewGroup()
	for i, cfg := range configs {
		group.Submit(func() {
			events, err := p.PollConfig(ctx, cfg)
			handle(i, Batch{Config: cfg, Events: events, Err: err})
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, pond.ErrGroupStopped) {
		p.logger.Warn("poll workers stopped early", zap.Error(err))
	}
}

// PollConfig polls every pool of cfg concurrently. A failing pool does not
// stop the others; its error is joined into the result. Events are grouped by
// exchange and ascending by lt within a pool.
func (p *Poller) PollConfig(ctx context.Context, cfg *domain.WatchedConfig) ([]*domain.BuyEvent, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	exchanges := domain.Exchanges()
	perPool := make([][]*domain.BuyEvent, len(exchanges))
	var (
		mu   sync.Mutex
		errs []error
	)

	var g errgroup.Group
	for i, ex := range exchanges {
		addr, ok := cfg.PoolAddress(ex)
		if !ok {
			continue
		}
		g.Go(func() error {
			events, err := p.PollPool(ctx, cfg, ex, addr)
			observability.RecordPoll(ex.String(), err)
			if err != nil {
				p.logger.Warn("pool poll failed",
					zap.Int64("group_id", cfg.GroupID),
					zap.String("exchange", ex.String()),
					zap.String("pool", addr),
					zap.Error(err),
				)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s pool %s: %w", ex, addr, err))
				mu.Unlock()
				return nil
			}
			perPool[i] = events
			return nil
		})
	}
	_ = g.Wait()

	var out []*domain.BuyEvent
	for _, events := range perPool {
		out = append(out, events...)
	}
	return out, errors.Join(errs...)
}

// PollPool fetches recent transactions of one pool, emits and persists buys
// newer than the cursor, then advances the cursor to the highest lt seen.
// On any error the cursor is left untouched.
func (p *Poller) PollPool(ctx context.Context, cfg *domain.WatchedConfig, ex domain.Exchange, pool string) ([]*domain.BuyEvent, error) {
	cursor, err := p.cursors.Get(ctx, pool)
	if err != nil {
		return nil, fmt.Errorf("read cursor: %w", err)
	}

	started := time.Now()
	txs, err := p.source.AccountTransactions(ctx, pool, p.limit)
	observability.RecordSourceCall("tonapi", "transactions", started, err)
	if err != nil {
		return nil, fmt.Errorf("fetch transactions: %w", err)
	}

	fresh := make([]tonapi.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.LT > cursor {
			fresh = append(fresh, tx)
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	sort.SliceStable(fresh, func(i, j int) bool { return fresh[i].LT < fresh[j].LT })

	var events []*domain.BuyEvent
	maxLT := cursor
	for _, tx := range fresh {
		maxLT = max(maxLT, tx.LT)

		ev, ok := p.detect(ctx, cfg, ex, pool, tx)
		if !ok {
			continue
		}

		switch err := p.events.Append(ctx, ev); {
		case err == nil:
			observability.RecordPersist("ok")
		case errors.Is(err, storage.ErrDuplicateKey):
			observability.RecordPersist("duplicate")
		default:
			observability.RecordPersist("error")
			return nil, fmt.Errorf("persist lt %d: %w", tx.LT, err)
		}
		observability.RecordBuyDetected(ex.String())
		events = append(events, ev)
	}

	if err := p.cursors.Advance(ctx, pool, maxLT); err != nil {
		return nil, fmt.Errorf("advance cursor to %d: %w", maxLT, err)
	}
	observability.RecordCursorAdvance()
	p.logger.Debug("cursor advanced",
		zap.String("pool", pool),
		zap.Int64("from", cursor),
		zap.Int64("to", maxLT),
		zap.Int("buys", len(events)),
	)
	return events, nil
}

// detect extracts a buy from tx. The min-buy filter runs before the trace is
// fetched; transactions with an unknown TON amount are never filtered by it.
func (p *Poller) detect(ctx context.Context, cfg *domain.WatchedConfig, ex domain.Exchange, pool string, tx tonapi.Transaction) (*domain.BuyEvent, bool) {
	if ton := extractor.TONAmount(tx); ton != nil && *ton < cfg.MinBuyTON {
		observability.RecordFiltered("min_buy")
		return nil, false
	}

	trace := jsontree.NullValue()
	if tx.TraceID != "" {
		started := time.Now()
		t, err := p.source.Trace(ctx, tx.TraceID)
		observability.RecordSourceCall("tonapi", "trace", started, err)
		if err != nil {
			p.logger.Debug("trace unavailable, using transaction record",
				zap.String("trace_id", tx.TraceID),
				zap.Error(err),
			)
		} else {
			trace = t
		}
	}

	res := extractor.Extract(tx, trace)
	if !res.IsBuy() {
		observability.RecordFiltered("not_buy")
		return nil, false
	}

	return &domain.BuyEvent{
		Exchange:      ex,
		GroupID:       cfg.GroupID,
		TokenSymbol:   cfg.TokenSymbol,
		JettonAddress: cfg.JettonAddress,
		PoolAddress:   pool,
		LT:            tx.LT,
		TONAmount:     res.TONAmount,
		USDAmount:     res.USDAmount,
		JettonAmount:  res.JettonAmount,
		BuyerAddress:  res.Buyer,
		TxHash:        res.TxHash,
		ObservedAt:    p.now(),
	}, true
}
