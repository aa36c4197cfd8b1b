// models/models.go
package models

import (
	"sort"
	"time"

	"github.com/wfunc/broinkroyale/game"
)

// MatchRecord 比赛记录模型. It is an export of a finished match and is never
// loaded back into a lobby.
type MatchRecord struct {
	LobbyID   string        `json:"lobbyId"`
	Winner    *string       `json:"winner"`
	Players   []MatchPlayer `json:"players"`
	StartedAt time.Time     `json:"startedAt"`
	EndedAt   time.Time     `json:"endedAt"`
}

// MatchPlayer 玩家信息（用于比赛记录）
type MatchPlayer struct {
	PlayerID string `json:"playerId"`
	Score    int    `json:"score"`
	Winner   bool   `json:"winner"`
}

// NewMatchRecord builds a record from a match result, players sorted by id.
func NewMatchRecord(r game.Result) MatchRecord {
	rec := MatchRecord{
		LobbyID:   r.LobbyID,
		Winner:    r.Winner,
		Players:   make([]MatchPlayer, 0, len(r.Scores)),
		StartedAt: r.StartedAt,
		EndedAt:   r.EndedAt,
	}
	for id, score := range r.Scores {
		rec.Players = append(rec.Players, MatchPlayer{
			PlayerID: id,
			Score:    score,
			Winner:   r.Winner != nil && *r.Winner == id,
		})
	}
	sort.Slice(rec.Players, func(i, j int) bool { return rec.Players[i].PlayerID < rec.Players[j].PlayerID })
	return rec
}

// Duration 比赛时长
func (r MatchRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.EndedAt.Before(r.StartedAt) {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}
