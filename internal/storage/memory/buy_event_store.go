package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/storage"
)

type eventKey struct {
	groupID int64
	pool    string
	lt      int64
}

// BuyEventStore is an in-memory implementation of storage.BuyEventStore.
type BuyEventStore struct {
	mu     sync.RWMutex
	events []*domain.BuyEvent
	keys   map[eventKey]struct{}
}

// NewBuyEventStore creates a new in-memory event log.
func NewBuyEventStore() *BuyEventStore {
	return &BuyEventStore{
		keys: make(map[eventKey]struct{}),
	}
}

// Compile-time interface check.
var _ storage.BuyEventStore = (*BuyEventStore)(nil)

// Append stores a copy of the event without enrichment fields.
func (s *BuyEventStore) Append(_ context.Context, e *domain.BuyEvent) error {
	if e == nil || e.PoolAddress == "" {
		return storage.ErrInvalidInput
	}

	k := eventKey{groupID: e.GroupID, pool: e.PoolAddress, lt: e.LT}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.keys[k]; exists {
		return storage.ErrDuplicateKey
	}
	s.keys[k] = struct{}{}

	stored := &domain.BuyEvent{
		Exchange:      e.Exchange,
		GroupID:       e.GroupID,
		TokenSymbol:   e.TokenSymbol,
		JettonAddress: e.JettonAddress,
		PoolAddress:   e.PoolAddress,
		LT:            e.LT,
		TONAmount:     e.TONAmount,
		USDAmount:     e.USDAmount,
		JettonAmount:  e.JettonAmount,
		BuyerAddress:  e.BuyerAddress,
		TxHash:        e.TxHash,
		ObservedAt:    e.ObservedAt,
	}
	s.events = append(s.events, stored)
	return nil
}

// Leaderboard aggregates events observed at or after since.
func (s *BuyEventStore) Leaderboard(_ context.Context, since time.Time, limit int) ([]domain.LeaderboardRow, error) {
	if limit <= 0 {
		return nil, storage.ErrInvalidInput
	}

	s.mu.RLock()
	agg := make(map[string]*domain.LeaderboardRow)
	for _, e := range s.events {
		if e.ObservedAt.Before(since) {
			continue
		}
		key := e.LeaderboardKey()
		row, ok := agg[key]
		if !ok {
			row = &domain.LeaderboardRow{Key: key}
			agg[key] = row
		}
		if e.USDAmount != nil {
			row.VolumeUSD += *e.USDAmount
		}
		row.Buys++
	}
	s.mu.RUnlock()

	rows := make([]domain.LeaderboardRow, 0, len(agg))
	for _, r := range agg {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].VolumeUSD != rows[j].VolumeUSD {
			return rows[i].VolumeUSD > rows[j].VolumeUSD
		}
		if rows[i].Buys != rows[j].Buys {
			return rows[i].Buys > rows[j].Buys
		}
		return rows[i].Key < rows[j].Key
	})

	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// Len returns the number of stored events.
func (s *BuyEventStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
