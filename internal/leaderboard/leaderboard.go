// Package leaderboard aggregates recent buy volume into a rank table and keeps
// a single leaderboard message up to date.
package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/notify"
	"ton-buy-tracker/internal/observability"
	"ton-buy-tracker/internal/render"
	"ton-buy-tracker/internal/storage"
)

const (
	DefaultWindow   = 15 * time.Minute
	DefaultInterval = 10 * time.Second
)

// ErrTickInProgress is returned by Tick while another tick is running.
var ErrTickInProgress = errors.New("leaderboard tick in progress")

// Aggregator recomputes the leaderboard on every Tick.
type Aggregator struct {
	events   storage.BuyEventStore
	channel  notify.Channel
	dest     notify.Destination
	handle   string
	window   time.Duration
	interval time.Duration
	limit    int
	now      func() time.Time
	logger   *zap.Logger

	table     atomic.Pointer[domain.RankTable]
	running   atomic.Bool
	messageID atomic.Int64 // written only by the running tick
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithWindow sets how far back buys count.
func WithWindow(d time.Duration) Option {
	return func(a *Aggregator) { a.window = d }
}

// WithInterval sets the refresh interval shown in the message footer.
func WithInterval(d time.Duration) Option {
	return func(a *Aggregator) { a.interval = d }
}

// WithMessageID seeds the id of an already posted leaderboard message.
func WithMessageID(id int) Option {
	return func(a *Aggregator) { a.messageID.Store(int64(id)) }
}

// WithClock sets the clock.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(a *Aggregator) { a.logger = logger }
}

// New creates an aggregator publishing to dest as handle. A zero dest only
// maintains the rank table.
func New(events storage.BuyEventStore, channel notify.Channel, dest notify.Destination, handle string, opts ...Option) *Aggregator {
	a := &Aggregator{
		events:   events,
		channel:  channel,
		dest:     dest,
		handle:   handle,
		window:   DefaultWindow,
		interval: DefaultInterval,
		limit:    render.LeaderboardSize,
		now:      time.Now,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.table.Store(domain.NewRankTable(nil, time.Time{}))
	return a
}

// Ranks returns the most recently published rank table. Never nil.
func (a *Aggregator) Ranks() *domain.RankTable {
	return a.table.Load()
}

// MessageID returns the id of the current leaderboard message, 0 if none.
func (a *Aggregator) MessageID() int {
	return int(a.messageID.Load())
}

// Tick recomputes rankings, publishes them and refreshes the message. Only one
// tick runs at a time; a concurrent call returns ErrTickInProgress.
func (a *Aggregator) Tick(ctx context.Context) (err error) {
	if !a.running.CompareAndSwap(false, true) {
		return ErrTickInProgress
	}
	defer a.running.Store(false)

	table, err := a.Compute(ctx)
	defer func() { observability.RecordLeaderboardTick(table.Len(), err) }()
	if err != nil {
		return err
	}
	a.table.Store(table)

	if a.dest.IsZero() {
		return nil
	}
	return a.publish(ctx, render.Leaderboard(table.Rows, a.handle, a.interval))
}

// Compute builds a rank table from the event log without publishing it.
func (a *Aggregator) Compute(ctx context.Context) (*domain.RankTable, error) {
	now := a.now()
	rows, err := a.events.Leaderboard(ctx, now.Add(-a.window), a.limit)
	if err != nil {
		return nil, fmt.Errorf("query leaderboard: %w", err)
	}
	return domain.NewRankTable(rows, now), nil
}

func (a *Aggregator) publish(ctx context.Context, text string) error {
	if current := a.MessageID(); current != 0 {
		err := a.channel.Edit(ctx, a.dest, current, text)
		if err == nil {
			observability.RecordLeaderboardMessage("edited")
			return nil
		}
		reason := "error"
		switch {
		case errors.Is(err, notify.ErrMessageNotFound):
			reason = "not_found"
		case errors.Is(err, notify.ErrMessageNotModified):
			reason = "not_modified"
		}
		a.logger.Info("leaderboard edit failed, sending new message",
			zap.Int("message_id", current),
			zap.String("reason", reason),
			zap.Error(err),
		)
	}

	id, err := a.channel.Send(ctx, a.dest, text, notify.SendOptions{})
	if err != nil {
		observability.RecordLeaderboardMessage("send_failed")
		return fmt.Errorf("send leaderboard: %w", err)
	}
	a.messageID.Store(int64(id))
	observability.RecordLeaderboardMessage("sent")
	return nil
}
