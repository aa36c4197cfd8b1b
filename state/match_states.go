package state

import (
	"encoding/json"

	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/network"
)

// ActiveState 游戏进行状态: every tick runs the simulation pipeline.
type ActiveState struct {
	LobbyStateBase
}

func NewActiveState(lobby LobbyContext) *ActiveState {
	return &ActiveState{
		LobbyStateBase: LobbyStateBase{
			ID:    Active,
			Lobby: lobby,
		},
	}
}

func (s *ActiveState) OnEnter() {
	logger.Log.Infof("lobby %s started with %d players", s.Lobby.GetID(), s.Lobby.PlayerCount())
	if err := s.Lobby.Broadcast(network.MsgTypeGameStarted, nil); err != nil {
		logger.Log.Warnf("lobby %s: broadcast gameStarted: %v", s.Lobby.GetID(), err)
	}
}

func (s *ActiveState) OnUpdate() {
	s.Lobby.Simulate()
}

// EndedState is terminal. It announces the winner on entry and never ticks.
type EndedState struct {
	LobbyStateBase
}

func NewEndedState(lobby LobbyContext) *EndedState {
	return &EndedState{
		LobbyStateBase: LobbyStateBase{
			ID:    Ended,
			Lobby: lobby,
		},
	}
}

func (s *EndedState) OnEnter() {
	msg := network.GameEnded{}
	if winner, ok := s.Lobby.Winner(); ok {
		msg.Winner = &winner
	}
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Log.Errorf("lobby %s: marshal gameEnded: %v", s.Lobby.GetID(), err)
		return
	}
	if msg.Winner != nil {
		logger.Log.Infof("lobby %s ended, winner %s", s.Lobby.GetID(), *msg.Winner)
	} else {
		logger.Log.Infof("lobby %s ended without a winner", s.Lobby.GetID())
	}
	if err := s.Lobby.Broadcast(network.MsgTypeGameEnded, data); err != nil {
		logger.Log.Warnf("lobby %s: broadcast gameEnded: %v", s.Lobby.GetID(), err)
	}
}
