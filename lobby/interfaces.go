package lobby

import (
	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/physics"
)

// Broadcaster is the messaging side a lobby talks to. It is declared here to
// keep the lobby free of transport imports.
type Broadcaster interface {
	JoinRoom(roomID, sessionID string)
	LeaveRoom(roomID, sessionID string)
	CloseRoom(roomID string)
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	SendToSession(sessionID string, msgID uint16, data []byte) error
}

// Observer receives match lifecycle facts. Calls happen with the lobby lock
// held, so implementations must return quickly and never call back in.
type Observer interface {
	GameStarted(lobbyID string)
	Knockout(lobbyID string, ko game.Knockout)
	GameEnded(result game.Result)
}

// WorldFactory creates the physics world owned by a new lobby.
type WorldFactory func(rules game.Rules) physics.World

// Box2DWorlds is the production WorldFactory.
func Box2DWorlds(rules game.Rules) physics.World {
	return physics.NewBox2DWorld(rules.VelocityIterations, rules.PositionIterations)
}

type nopObserver struct{}

func (nopObserver) GameStarted(string)             {}
func (nopObserver) Knockout(string, game.Knockout) {}
func (nopObserver) GameEnded(game.Result)          {}

// Observers fans lifecycle facts out to several observers in order.
type Observers []Observer

func (obs Observers) GameStarted(lobbyID string) {
	for _, o := range obs {
		o.GameStarted(lobbyID)
	}
}

func (obs Observers) Knockout(lobbyID string, ko game.Knockout) {
	for _, o := range obs {
		o.Knockout(lobbyID, ko)
	}
}

func (obs Observers) GameEnded(result game.Result) {
	for _, o := range obs {
		o.GameEnded(result)
	}
}
