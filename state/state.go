package state

import (
	"errors"
	"sync"
)

// Lobby state ids.
const (
	Waiting = "waiting"
	Active  = "active"
	Ended   = "ended"
)

// 状态机接口
type StateMachine interface {
	ChangeState(state State) error
	GetCurrentState() State
	AddTransition(from State, to State, condition func() bool) error
}

// 状态接口
type State interface {
	OnEnter()
	OnExit()
	OnUpdate()
	GetID() string
}

// ErrTransitionNotAllowed is returned when a state transition is not declared
// or its condition does not hold.
var ErrTransitionNotAllowed = errors.New("state transition not allowed")

// 基础状态机实现. Only transitions registered with AddTransition are allowed.
type BaseStateMachine struct {
	currentState State
	transitions  map[string]map[string]func() bool // fromState -> toState -> condition
	mutex        sync.RWMutex
}

func NewBaseStateMachine(initialState State) *BaseStateMachine {
	machine := &BaseStateMachine{
		currentState: initialState,
		transitions:  make(map[string]map[string]func() bool),
	}
	initialState.OnEnter()
	return machine
}

// ChangeState runs OnExit/OnEnter while holding the machine lock; states must
// not call back into the machine from those hooks.
func (sm *BaseStateMachine) ChangeState(newState State) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	currentID := sm.currentState.GetID()
	newID := newState.GetID()

	conditions, exists := sm.transitions[currentID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	condition, exists := conditions[newID]
	if !exists {
		return ErrTransitionNotAllowed
	}
	if condition != nil && !condition() {
		return ErrTransitionNotAllowed
	}

	sm.currentState.OnExit()
	sm.currentState = newState
	sm.currentState.OnEnter()

	return nil
}

func (sm *BaseStateMachine) GetCurrentState() State {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.currentState
}

func (sm *BaseStateMachine) AddTransition(from State, to State, condition func() bool) error {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()

	fromID := from.GetID()
	toID := to.GetID()

	if _, exists := sm.transitions[fromID]; !exists {
		sm.transitions[fromID] = make(map[string]func() bool)
	}

	sm.transitions[fromID][toID] = condition
	return nil
}

// 房间状态基础结构
type LobbyStateBase struct {
	ID    string
	Lobby LobbyContext
}

func (s *LobbyStateBase) GetID() string {
	return s.ID
}

func (s *LobbyStateBase) OnEnter() {}

func (s *LobbyStateBase) OnExit() {}

func (s *LobbyStateBase) OnUpdate() {}

// NewWaitingState creates a new waiting state.
func NewWaitingState(lobby LobbyContext) *WaitingState {
	return &WaitingState{
		LobbyStateBase: LobbyStateBase{
			ID:    Waiting,
			Lobby: lobby,
		},
	}
}

// 等待状态: players gather, nothing is simulated.
type WaitingState struct {
	LobbyStateBase
}

// NewLobbyMachine builds the waiting -> active -> ended machine for a lobby.
// The lobby may only start once minPlayers have joined; ended is terminal.
func NewLobbyMachine(lobby LobbyContext, minPlayers int) *BaseStateMachine {
	waiting := NewWaitingState(lobby)
	active := NewActiveState(lobby)
	ended := NewEndedState(lobby)

	sm := NewBaseStateMachine(waiting)
	_ = sm.AddTransition(waiting, active, func() bool {
		return lobby.PlayerCount() >= minPlayers
	})
	_ = sm.AddTransition(active, ended, nil)
	return sm
}
