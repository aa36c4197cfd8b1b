// lobby/lobby.go
package lobby

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/network"
	"github.com/wfunc/broinkroyale/physics"
	"github.com/wfunc/broinkroyale/state"
)

var (
	ErrLobbyFull       = errors.New("lobby full")
	ErrLobbyInProgress = errors.New("game in progress")
	ErrLobbyClosed     = errors.New("lobby closed")
	ErrAlreadyJoined   = errors.New("already in lobby")
)

const (
	playerDensity     = 1
	playerRestitution = 1
	wallRestitution   = 1
)

// Options wires a lobby to its collaborators.
type Options struct {
	Rules       game.Rules
	World       physics.World
	Broadcaster Broadcaster
	Observer    Observer
	Clock       func() time.Time
}

// Lobby is one isolated match: arena, physics world, players and state.
// Session events and ticks are serialized by mu.
type Lobby struct {
	ID        string
	CreatedAt time.Time

	mu           sync.Mutex
	rules        game.Rules
	arena        *game.Arena
	world        physics.World
	players      map[string]*game.Player
	bodyOwners   map[physics.BodyID]string
	boundaries   []physics.BodyID
	contacts     *game.ContactTracker
	scores       *game.ScoreKeeper
	machine      state.StateMachine
	shrinkTicks  int
	ticks        uint64
	lastKnockout *game.Knockout
	winner       string
	startedAt    time.Time
	closed       bool

	broadcaster Broadcaster
	observer    Observer
	now         func() time.Time
}

var _ state.LobbyContext = (*Lobby)(nil)

// New creates a waiting lobby, its boundary walls and its single contact
// subscription.
func New(id string, opts Options) *Lobby {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	contacts := game.NewContactTracker(opts.Rules.ContactWindow)
	l := &Lobby{
		ID:          id,
		CreatedAt:   opts.Clock(),
		rules:       opts.Rules,
		arena:       game.NewArena(opts.Rules),
		world:       opts.World,
		players:     make(map[string]*game.Player),
		bodyOwners:  make(map[physics.BodyID]string),
		contacts:    contacts,
		scores:      game.NewScoreKeeper(contacts),
		broadcaster: opts.Broadcaster,
		observer:    opts.Observer,
		now:         opts.Clock,
	}
	l.world.OnContactBegin(l.handleContact)
	l.rebuildBoundaries()
	l.machine = state.NewLobbyMachine(l, opts.Rules.MinPlayers)
	return l
}

// --- state.LobbyContext, called with mu held ---

func (l *Lobby) GetID() string {
	return l.ID
}

func (l *Lobby) PlayerCount() int {
	return len(l.players)
}

func (l *Lobby) Winner() (string, bool) {
	return l.winner, l.winner != ""
}

func (l *Lobby) Broadcast(msgID uint16, data []byte) error {
	return l.broadcaster.BroadcastToRoom(l.ID, msgID, data)
}

// Simulate runs one tick: inputs, physics step, shrink, eliminations,
// end check, snapshot.
func (l *Lobby) Simulate() {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorf("lobby %s: physics fault at tick %d: %v", l.ID, l.ticks, r)
			l.finish("")
		}
	}()

	l.ticks++

	for _, p := range l.players {
		if p.IsAlive {
			l.world.ApplyForceToCenter(p.Body, p.Force(l.rules.ForceGain))
		}
	}

	l.world.Step(l.rules.PhysicsStep)

	l.shrinkTicks++
	if l.shrinkTicks >= l.rules.ShrinkTicks() {
		if l.arena.Shrink() {
			l.rebuildBoundaries()
			logger.Log.Debugf("lobby %s: arena shrunk to %.0fx%.0f", l.ID, l.arena.Width, l.arena.Height)
		}
		l.shrinkTicks = 0
	}

	now := l.now()
	positions := make(map[string]physics.Vec2, len(l.players))
	for id, p := range l.players {
		if p.IsAlive {
			positions[id] = l.world.Position(p.Body)
		}
	}
	res := l.scores.Evaluate(l.arena, l.players, positions, now)
	for _, id := range res.Eliminated {
		l.world.Park(l.players[id].Body, l.arena.Center())
	}
	for i := range res.Knockouts {
		ko := res.Knockouts[i]
		l.lastKnockout = &ko
		logger.Log.Debugf("lobby %s: %s knocked out %s", l.ID, ko.PlayerID, ko.VictimID)
		l.broadcastJSON(network.MsgTypeKnockout, ko)
		l.observer.Knockout(l.ID, ko)
	}

	if len(res.Alive) <= 1 {
		winner, _ := res.Winner()
		l.finish(winner)
	}

	l.broadcastJSON(network.MsgTypeGameUpdate, l.snapshot())
}

// finish moves an active lobby to ended. winner is empty when nobody won.
func (l *Lobby) finish(winner string) {
	l.winner = winner
	if err := l.machine.ChangeState(state.NewEndedState(l)); err != nil {
		return
	}
	result := game.Result{
		LobbyID:   l.ID,
		Scores:    make(map[string]int, len(l.players)),
		StartedAt: l.startedAt,
		EndedAt:   l.now(),
	}
	if winner != "" {
		w := winner
		result.Winner = &w
	}
	for id, p := range l.players {
		result.Scores[id] = p.Score
	}
	l.observer.GameEnded(result)
}

// --- session events ---

// Join adds sessionID as a new player. It is rejected when the lobby is
// full, already running or finished. Reaching the start threshold starts
// the match.
func (l *Lobby) Join(sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrLobbyClosed
	}
	if _, ok := l.players[sessionID]; ok {
		return ErrAlreadyJoined
	}
	if id := l.stateID(); id == state.Active || id == state.Ended {
		return ErrLobbyInProgress
	}
	if len(l.players) >= l.rules.MaxPlayers {
		return ErrLobbyFull
	}

	body := l.world.CreateDynamicCircle(l.arena.Center(), l.rules.PlayerRadius, playerDensity, playerRestitution)
	l.players[sessionID] = game.NewPlayer(sessionID, body)
	l.bodyOwners[body] = sessionID

	l.broadcaster.JoinRoom(l.ID, sessionID)
	l.broadcastPlayerList()
	l.sendJSON(sessionID, network.MsgTypeJoinedLobby, network.JoinedLobby{LobbyID: l.ID})

	if len(l.players) >= l.rules.MinPlayers && l.stateID() == state.Waiting {
		if err := l.machine.ChangeState(state.NewActiveState(l)); err == nil {
			l.startedAt = l.now()
			l.observer.GameStarted(l.ID)
		}
	}
	return nil
}

// Leave removes sessionID and destroys its body. It reports whether the
// session was a member and how many players remain.
func (l *Lobby) Leave(sessionID string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return false, 0
	}
	p, ok := l.players[sessionID]
	if !ok {
		return false, len(l.players)
	}
	l.world.DestroyBody(p.Body)
	delete(l.bodyOwners, p.Body)
	delete(l.players, sessionID)

	l.broadcaster.LeaveRoom(l.ID, sessionID)
	l.broadcastPlayerList()
	return true, len(l.players)
}

// SetInput stores the latest input of sessionID. Unknown sessions are ignored.
func (l *Lobby) SetInput(sessionID string, in game.Input) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.players[sessionID]
	if !ok || l.closed {
		return false
	}
	p.Input = in
	return true
}

// Tick advances the lobby by one scheduler tick. Only active lobbies do work.
func (l *Lobby) Tick() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.machine.GetCurrentState().OnUpdate()
}

// Close releases every body and the world. The lobby is unusable afterwards.
func (l *Lobby) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	for id, p := range l.players {
		l.world.DestroyBody(p.Body)
		delete(l.players, id)
	}
	for _, id := range l.boundaries {
		l.world.DestroyBody(id)
	}
	l.boundaries = nil
	l.bodyOwners = make(map[physics.BodyID]string)
	l.world.Destroy()
	l.broadcaster.CloseRoom(l.ID)
	l.closed = true
}

// --- read accessors ---

func (l *Lobby) State() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stateID()
}

func (l *Lobby) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.players)
}

func (l *Lobby) PlayerIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.playerIDs()
}

func (l *Lobby) Arena() game.Arena {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.arena
}

func (l *Lobby) Snapshot() game.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshot()
}

// Summary is a short description of a lobby for status endpoints.
type Summary struct {
	ID        string    `json:"id"`
	State     string    `json:"state"`
	Players   int       `json:"players"`
	Width     float64   `json:"width"`
	Height    float64   `json:"height"`
	CreatedAt time.Time `json:"createdAt"`
}

func (l *Lobby) Summary() Summary {
	l.mu.Lock()
	defer l.mu.Unlock()
	return Summary{
		ID:        l.ID,
		State:     l.stateID(),
		Players:   len(l.players),
		Width:     l.arena.Width,
		Height:    l.arena.Height,
		CreatedAt: l.CreatedAt,
	}
}

// --- internals, mu held ---

func (l *Lobby) stateID() string {
	return l.machine.GetCurrentState().GetID()
}

func (l *Lobby) playerIDs() []string {
	ids := make([]string, 0, len(l.players))
	for id := range l.players {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (l *Lobby) snapshot() game.Snapshot {
	snap := game.Snapshot{
		Players:      make(map[string]game.PlayerView, len(l.players)),
		Arena:        *l.arena,
		State:        l.stateID(),
		LastKnockout: l.lastKnockout,
	}
	for id, p := range l.players {
		snap.Players[id] = game.PlayerView{
			Position: l.world.Position(p.Body),
			Velocity: l.world.Velocity(p.Body),
			Score:    p.Score,
			IsAlive:  p.IsAlive,
		}
	}
	return snap
}

// handleContact runs inside world.Step. Contacts with walls, removed
// players or already eliminated players are ignored.
func (l *Lobby) handleContact(a, b physics.BodyID) {
	idA, okA := l.bodyOwners[a]
	idB, okB := l.bodyOwners[b]
	if !okA || !okB {
		return
	}
	pa, pb := l.players[idA], l.players[idB]
	if pa == nil || pb == nil || !pa.IsAlive || !pb.IsAlive {
		return
	}
	l.contacts.Touch(pa, pb, l.now())
}

func (l *Lobby) rebuildBoundaries() {
	for _, id := range l.boundaries {
		l.world.DestroyBody(id)
	}
	l.boundaries = l.boundaries[:0]
	for _, w := range l.arena.Walls(l.rules.WallThickness) {
		l.boundaries = append(l.boundaries, l.world.CreateStaticBox(w.Center, w.HalfWidth, w.HalfHeight, wallRestitution))
	}
}

func (l *Lobby) broadcastPlayerList() {
	l.broadcastJSON(network.MsgTypePlayerList, network.PlayerList{Players: l.playerIDs()})
}

func (l *Lobby) broadcastJSON(msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("lobby %s: marshal msg %d: %v", l.ID, msgID, err)
		return
	}
	if err := l.Broadcast(msgID, data); err != nil {
		logger.Log.Debugf("lobby %s: broadcast msg %d: %v", l.ID, msgID, err)
	}
}

func (l *Lobby) sendJSON(sessionID string, msgID uint16, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.Log.Errorf("lobby %s: marshal msg %d: %v", l.ID, msgID, err)
		return
	}
	if err := l.broadcaster.SendToSession(sessionID, msgID, data); err != nil {
		logger.Log.Debugf("lobby %s: send msg %d to %s: %v", l.ID, msgID, sessionID, err)
	}
}
