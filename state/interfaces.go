// state/interfaces.go
package state

// LobbyContext defines what a lobby must expose to be driven by the state machine.
// Every method is called with the lobby's own lock already held.
type LobbyContext interface {
	GetID() string
	PlayerCount() int
	// Simulate runs one tick of the match pipeline.
	Simulate()
	// Winner reports the sole survivor of a finished match.
	Winner() (string, bool)
	Broadcast(msgID uint16, data []byte) error
}
