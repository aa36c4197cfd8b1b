// game/snapshot.go
package game

import (
	"time"

	"github.com/wfunc/broinkroyale/physics"
)

// PlayerView is the visible part of a player sent every tick.
type PlayerView struct {
	Position physics.Vec2 `json:"position"`
	Velocity physics.Vec2 `json:"velocity"`
	Score    int          `json:"score"`
	IsAlive  bool         `json:"isAlive"`
}

// Snapshot is the per-tick view of a lobby broadcast to its members.
type Snapshot struct {
	Players      map[string]PlayerView `json:"players"`
	Arena        Arena                 `json:"arena"`
	State        string                `json:"state"`
	LastKnockout *Knockout             `json:"lastKnockout"`
}

// Result summarizes a finished match. Winner is nil when nobody survived.
type Result struct {
	LobbyID   string
	Winner    *string
	Scores    map[string]int
	StartedAt time.Time
	EndedAt   time.Time
}
