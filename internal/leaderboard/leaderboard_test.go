package leaderboard

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/notify"
	"ton-buy-tracker/internal/storage/memory"
)

func ptr[T any](v T) *T { return &v }

type op struct {
	kind string
	id   int
	text string
}

type scriptedChannel struct {
	ops     []op
	nextID  int
	editErr error
	sendErr error
}

func (c *scriptedChannel) Send(_ context.Context, _ notify.Destination, text string, _ notify.SendOptions) (int, error) {
	if c.sendErr != nil {
		return 0, c.sendErr
	}
	c.nextID++
	c.ops = append(c.ops, op{kind: "send", id: c.nextID, text: text})
	return c.nextID, nil
}

func (c *scriptedChannel) Edit(_ context.Context, _ notify.Destination, id int, text string) error {
	c.ops = append(c.ops, op{kind: "edit", id: id, text: text})
	return c.editErr
}

var (
	now  = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	dest = notify.Destination{Username: "@trending"}
)

func seed(t *testing.T, store *memory.BuyEventStore) {
	t.Helper()
	ctx := context.Background()
	add := func(sym string, lt int64, usd float64, at time.Time) {
		require.NoError(t, store.Append(ctx, &domain.BuyEvent{
			GroupID:     1,
			TokenSymbol: ptr(sym),
			PoolAddress: "pool-" + sym,
			LT:          lt,
			USDAmount:   ptr(usd),
			ObservedAt:  at,
		}))
	}
	add("A", 1, 100, now.Add(-time.Minute))
	add("A", 2, 50, now.Add(-2*time.Minute))
	add("B", 3, 80, now.Add(-3*time.Minute))
	add("C", 4, 999, now.Add(-20*time.Minute))
}

func newAggregator(store *memory.BuyEventStore, ch notify.Channel, opts ...Option) *Aggregator {
	opts = append([]Option{WithClock(func() time.Time { return now })}, opts...)
	return New(store, ch, dest, "trendbot", opts...)
}

func TestTick_RanksByWindowedVolume(t *testing.T) {
	store := memory.NewBuyEventStore()
	seed(t, store)
	ch := &scriptedChannel{}
	a := newAggregator(store, ch)

	require.NoError(t, a.Tick(context.Background()))

	ranks := a.Ranks()
	r, ok := ranks.Rank("A")
	require.True(t, ok)
	assert.Equal(t, 1, r)
	r, ok = ranks.Rank("B")
	require.True(t, ok)
	assert.Equal(t, 2, r)
	_, ok = ranks.Rank("C")
	assert.False(t, ok, "buys outside the window are excluded")

	require.Len(t, ranks.Rows, 2)
	assert.Equal(t, 150.0, ranks.Rows[0].VolumeUSD)
	assert.Equal(t, 2, ranks.Rows[0].Buys)
	assert.Equal(t, now, ranks.BuiltAt)

	require.Len(t, ch.ops, 1)
	assert.Equal(t, "send", ch.ops[0].kind)
	assert.Contains(t, ch.ops[0].text, "🟥 1 - $A\n🟥 2 - $B")
	assert.Equal(t, 1, a.MessageID())
}

func TestTick_EditsExistingMessage(t *testing.T) {
	store := memory.NewBuyEventStore()
	ch := &scriptedChannel{}
	a := newAggregator(store, ch)

	require.NoError(t, a.Tick(context.Background()))
	require.NoError(t, a.Tick(context.Background()))

	require.Len(t, ch.ops, 2)
	assert.Equal(t, op{kind: "edit", id: 1, text: ch.ops[0].text}, ch.ops[1])
	assert.Equal(t, 1, a.MessageID())
}

func TestTick_SeededMessageID(t *testing.T) {
	ch := &scriptedChannel{}
	a := newAggregator(memory.NewBuyEventStore(), ch, WithMessageID(77))

	require.NoError(t, a.Tick(context.Background()))

	require.Len(t, ch.ops, 1)
	assert.Equal(t, "edit", ch.ops[0].kind)
	assert.Equal(t, 77, ch.ops[0].id)
}

func TestTick_EditFailureSendsNewMessage(t *testing.T) {
	for _, editErr := range []error{
		notify.ErrMessageNotFound,
		notify.ErrMessageNotModified,
		errors.New("flood wait"),
	} {
		ch := &scriptedChannel{editErr: editErr, nextID: 100}
		a := newAggregator(memory.NewBuyEventStore(), ch, WithMessageID(5))

		require.NoError(t, a.Tick(context.Background()))

		require.Len(t, ch.ops, 2, editErr.Error())
		assert.Equal(t, "edit", ch.ops[0].kind)
		assert.Equal(t, "send", ch.ops[1].kind)
		assert.Equal(t, 101, a.MessageID())
	}
}

func TestTick_SendFailureKeepsRanks(t *testing.T) {
	store := memory.NewBuyEventStore()
	seed(t, store)
	ch := &scriptedChannel{sendErr: errors.New("chat not found")}
	a := newAggregator(store, ch)

	err := a.Tick(context.Background())
	require.Error(t, err)

	_, ok := a.Ranks().Rank("A")
	assert.True(t, ok, "rank table is published before delivery")
	assert.Zero(t, a.MessageID())
}

func TestTick_NoDestinationOnlyRanks(t *testing.T) {
	store := memory.NewBuyEventStore()
	seed(t, store)
	ch := &scriptedChannel{}
	a := New(store, ch, notify.Destination{}, "bot", WithClock(func() time.Time { return now }))

	require.NoError(t, a.Tick(context.Background()))

	assert.Empty(t, ch.ops)
	assert.Equal(t, 2, a.Ranks().Len())
}

func TestRanks_InitiallyEmpty(t *testing.T) {
	a := newAggregator(memory.NewBuyEventStore(), &scriptedChannel{})
	require.NotNil(t, a.Ranks())
	assert.Zero(t, a.Ranks().Len())
}

func TestTick_FooterShowsInterval(t *testing.T) {
	ch := &scriptedChannel{}
	a := newAggregator(memory.NewBuyEventStore(), ch, WithInterval(30*time.Second), WithWindow(time.Hour))

	require.NoError(t, a.Tick(context.Background()))
	require.Len(t, ch.ops, 1)
	assert.True(t, strings.HasSuffix(ch.ops[0].text, "every 30 seconds"))
}

type gatedChannel struct {
	entered chan struct{}
	release chan struct{}
}

func (c *gatedChannel) Send(context.Context, notify.Destination, string, notify.SendOptions) (int, error) {
	close(c.entered)
	<-c.release
	return 5, nil
}

func (c *gatedChannel) Edit(context.Context, notify.Destination, int, string) error {
	return nil
}

func TestTick_ConcurrentTickRejected(t *testing.T) {
	store := memory.NewBuyEventStore()
	seed(t, store)
	ch := &gatedChannel{entered: make(chan struct{}), release: make(chan struct{})}
	a := newAggregator(store, ch)

	done := make(chan error, 1)
	go func() { done <- a.Tick(context.Background()) }()
	<-ch.entered

	assert.ErrorIs(t, a.Tick(context.Background()), ErrTickInProgress)
	assert.Equal(t, 0, a.MessageID(), "readable while a send is in flight")
	_, ok := a.Ranks().Rank("A")
	assert.True(t, ok, "ranks are published before delivery")

	close(ch.release)
	require.NoError(t, <-done)
	assert.Equal(t, 5, a.MessageID())
}
