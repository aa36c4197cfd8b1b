package network

// Client -> server.
const (
	MsgTypeHeartbeat  = 1
	MsgTypeJoinLobby  = 101
	MsgTypeLeaveLobby = 102
	MsgTypeInput      = 201
)

// Server -> client.
const (
	MsgTypeJoinedLobby = 110
	MsgTypeJoinError   = 111
	MsgTypePlayerList  = 112
	MsgTypeGameStarted = 303
	MsgTypeGameUpdate  = 304
	MsgTypeGameEnded   = 305
	MsgTypeKnockout    = 306
)
