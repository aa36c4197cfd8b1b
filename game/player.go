// game/player.go
package game

import (
	"time"

	"github.com/wfunc/broinkroyale/physics"
)

// Input is the latest movement intent received from a client.
type Input struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

// ContactRecord remembers who last touched a player and when.
type ContactRecord struct {
	PlayerID string
	At       time.Time
}

// Player is the per-session state inside a lobby. Body is owned by the
// player and must be destroyed together with it.
type Player struct {
	ID          string
	Body        physics.BodyID
	Input       Input
	Score       int
	IsAlive     bool
	LastContact *ContactRecord
}

func NewPlayer(id string, body physics.BodyID) *Player {
	return &Player{ID: id, Body: body, IsAlive: true}
}

// Force is the force the player's input exerts this tick.
func (p *Player) Force(gain float64) physics.Vec2 {
	return physics.Vec2{X: p.Input.X * gain, Y: p.Input.Z * gain}
}
