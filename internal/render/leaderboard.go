package render

import (
	"html"
	"strconv"
	"strings"
	"time"

	"ton-buy-tracker/internal/domain"
)

// LeaderboardSize is the number of rows shown on the leaderboard.
const LeaderboardSize = 15

func leaderboardBlock(rank int) string {
	switch {
	case rank <= 3:
		return "🟥"
	case rank <= 10:
		return "⬛"
	default:
		return "🟩"
	}
}

// Leaderboard renders the trending message. handle is the bot username shown
// in the header and footer; every is the refresh interval.
func Leaderboard(rows []domain.LeaderboardRow, handle string, every time.Duration) string {
	handle = strings.TrimPrefix(handle, "@")
	lines := []string{"🔴 @" + html.EscapeString(handle), ""}

	if len(rows) > LeaderboardSize {
		rows = rows[:LeaderboardSize]
	}
	for i := 0; i < LeaderboardSize && i < max(len(rows), 10); i++ {
		rank := i + 1
		if i < len(rows) {
			lines = append(lines, leaderboardBlock(rank)+" "+strconv.Itoa(rank)+" - $"+html.EscapeString(rows[i].Key))
		}
		if rank == 3 || rank == 10 {
			lines = append(lines, separator)
		}
	}

	secs := int(every.Round(time.Second) / time.Second)
	lines = append(lines, "", "ℹ️ Trending data is automatically updated by @"+html.EscapeString(handle)+
		" every "+strconv.Itoa(secs)+" seconds")
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
