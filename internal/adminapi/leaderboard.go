package adminapi

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"ton-buy-tracker/internal/domain"
	"ton-buy-tracker/internal/leaderboard"
)

type leaderboardRow struct {
	Rank      int     `json:"rank"`
	Key       string  `json:"key"`
	VolumeUSD float64 `json:"volume_usd"`
	Buys      int     `json:"buys"`
}

type leaderboardResponse struct {
	BuiltAt   *time.Time       `json:"built_at,omitempty"`
	MessageID int              `json:"message_id,omitempty"`
	Rows      []leaderboardRow `json:"rows"`
}

func toLeaderboardResponse(t *domain.RankTable, messageID int) leaderboardResponse {
	resp := leaderboardResponse{MessageID: messageID, Rows: []leaderboardRow{}}
	if t == nil {
		return resp
	}
	if !t.BuiltAt.IsZero() {
		built := t.BuiltAt
		resp.BuiltAt = &built
	}
	for i, row := range t.Rows {
		resp.Rows = append(resp.Rows, leaderboardRow{
			Rank:      i + 1,
			Key:       row.Key,
			VolumeUSD: row.VolumeUSD,
			Buys:      row.Buys,
		})
	}
	return resp
}

// HandleLeaderboard returns the current rank table.
func (c *Controller) HandleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, toLeaderboardResponse(c.Leaderboard.Ranks(), c.Leaderboard.MessageID()))
}

// HandleLeaderboardRefresh runs one leaderboard tick immediately.
func (c *Controller) HandleLeaderboardRefresh(w http.ResponseWriter, r *http.Request) {
	err := c.Leaderboard.Tick(r.Context())
	if errors.Is(err, leaderboard.ErrTickInProgress) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		c.Logger.Warn("leaderboard refresh failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, toLeaderboardResponse(c.Leaderboard.Ranks(), c.Leaderboard.MessageID()))
}
