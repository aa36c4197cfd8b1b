package network

// JoinLobbyRequest asks to join LobbyID, or a fresh lobby when it is empty.
type JoinLobbyRequest struct {
	LobbyID string `json:"lobbyId,omitempty"`
}

// InputMessage carries the client's movement intent.
type InputMessage struct {
	X float64 `json:"x"`
	Z float64 `json:"z"`
}

type JoinedLobby struct {
	LobbyID string `json:"lobbyId"`
}

type JoinError struct {
	Reason string `json:"reason"`
}

type PlayerList struct {
	Players []string `json:"players"`
}

// GameEnded announces the winner; Winner is null when nobody survived.
type GameEnded struct {
	Winner *string `json:"winner"`
}
