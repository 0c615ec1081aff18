package domain

import "time"

// UnknownLeaderboardKey is used when neither symbol nor jetton address is known.
const UnknownLeaderboardKey = "UNKNOWN"

// LeaderboardKey returns symbol if known, else jetton address, else UNKNOWN.
func LeaderboardKey(symbol, jetton *string) string {
	if symbol != nil && *symbol != "" {
		return *symbol
	}
	if jetton != nil && *jetton != "" {
		return *jetton
	}
	return UnknownLeaderboardKey
}

// LeaderboardRow is an aggregated windowed volume per token key.
type LeaderboardRow struct {
	Key       string
	VolumeUSD float64
	Buys      int
}

// RankTable is an immutable snapshot of leaderboard positions.
type RankTable struct {
	Rows    []LeaderboardRow
	ranks   map[string]int
	BuiltAt time.Time
}

// NewRankTable builds a rank table from ordered rows (rank 1 = first row).
func NewRankTable(rows []LeaderboardRow, builtAt time.Time) *RankTable {
	t := &RankTable{
		Rows:    append([]LeaderboardRow(nil), rows...),
		ranks:   make(map[string]int, len(rows)),
		BuiltAt: builtAt,
	}
	for i, r := range t.Rows {
		if _, exists := t.ranks[r.Key]; !exists {
			t.ranks[r.Key] = i + 1
		}
	}
	return t
}

// Rank returns the 1-indexed rank for a key.
func (t *RankTable) Rank(key string) (int, bool) {
	if t == nil {
		return 0, false
	}
	r, ok := t.ranks[key]
	return r, ok
}

// Len returns number of ranked keys.
func (t *RankTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}
