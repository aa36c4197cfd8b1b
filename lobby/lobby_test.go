package lobby

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/network"
	"github.com/wfunc/broinkroyale/physics"
	"github.com/wfunc/broinkroyale/physics/physicstest"
	"github.com/wfunc/broinkroyale/state"
)

type sentMsg struct {
	to    string // room id for broadcasts, session id for direct sends
	msgID uint16
	data  []byte
}

type MockBroadcaster struct {
	mu     sync.Mutex
	rooms  map[string]map[string]bool
	msgs   []sentMsg
	closed []string
	direct []sentMsg
}

func newMockBroadcaster() *MockBroadcaster {
	return &MockBroadcaster{rooms: make(map[string]map[string]bool)}
}

func (m *MockBroadcaster) JoinRoom(roomID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms[roomID] == nil {
		m.rooms[roomID] = make(map[string]bool)
	}
	m.rooms[roomID][sessionID] = true
}

func (m *MockBroadcaster) LeaveRoom(roomID, sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms[roomID], sessionID)
}

func (m *MockBroadcaster) CloseRoom(roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, roomID)
	m.closed = append(m.closed, roomID)
}

func (m *MockBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = append(m.msgs, sentMsg{to: roomID, msgID: msgID, data: data})
	return nil
}

func (m *MockBroadcaster) SendToSession(sessionID string, msgID uint16, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.direct = append(m.direct, sentMsg{to: sessionID, msgID: msgID, data: data})
	return nil
}

func (m *MockBroadcaster) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.msgs = nil
	m.direct = nil
}

func (m *MockBroadcaster) ids() []uint16 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]uint16, 0, len(m.msgs))
	for _, msg := range m.msgs {
		out = append(out, msg.msgID)
	}
	return out
}

func (m *MockBroadcaster) last(msgID uint16) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.msgs) - 1; i >= 0; i-- {
		if m.msgs[i].msgID == msgID {
			return m.msgs[i].data
		}
	}
	return nil
}

func (m *MockBroadcaster) count(msgID uint16) int {
	n := 0
	for _, id := range m.ids() {
		if id == msgID {
			n++
		}
	}
	return n
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type recordingObserver struct {
	started   []string
	knockouts []game.Knockout
	results   []game.Result
}

func (o *recordingObserver) GameStarted(id string) { o.started = append(o.started, id) }
func (o *recordingObserver) Knockout(_ string, ko game.Knockout) {
	o.knockouts = append(o.knockouts, ko)
}
func (o *recordingObserver) GameEnded(r game.Result) { o.results = append(o.results, r) }

type fixture struct {
	lobby *Lobby
	world *physicstest.World
	bc    *MockBroadcaster
	clock *fakeClock
	obs   *recordingObserver
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		world: physicstest.New(),
		bc:    newMockBroadcaster(),
		clock: &fakeClock{now: time.Unix(1700000000, 0)},
		obs:   &recordingObserver{},
	}
	f.lobby = New("test-lobby", Options{
		Rules:       game.DefaultRules(),
		World:       f.world,
		Broadcaster: f.bc,
		Observer:    f.obs,
		Clock:       f.clock.Now,
	})
	return f
}

func (f *fixture) join(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		if err := f.lobby.Join(id); err != nil {
			t.Fatalf("Join(%s) failed: %v", id, err)
		}
	}
}

func (f *fixture) body(id string) physics.BodyID {
	return f.lobby.players[id].Body
}

func (f *fixture) place(id string, x, y float64) {
	f.world.Place(f.body(id), physics.Vec2{X: x, Y: y})
}

func TestNew_DefaultLobby(t *testing.T) {
	f := newFixture(t)

	if got := f.lobby.State(); got != state.Waiting {
		t.Errorf("Expected state %q, got %q", state.Waiting, got)
	}
	a := f.lobby.Arena()
	if a.Width != 800 || a.Height != 600 || a.ShrinkRate != 20 || a.MinSize != 200 {
		t.Errorf("Unexpected default arena: %+v", a)
	}
	if n := f.world.StaticCount(); n != 4 {
		t.Errorf("Expected 4 boundary bodies, got %d", n)
	}
}

func TestJoin_CapacityAndActivation(t *testing.T) {
	f := newFixture(t)

	f.join(t, "p1", "p2", "p3")
	if got := f.lobby.State(); got != state.Waiting {
		t.Fatalf("Expected waiting with 3 players, got %q", got)
	}
	if f.bc.count(network.MsgTypeGameStarted) != 0 {
		t.Fatal("gameStarted sent before the threshold")
	}

	f.join(t, "p4")
	if got := f.lobby.State(); got != state.Active {
		t.Fatalf("Expected active at 4 players, got %q", got)
	}
	if f.bc.count(network.MsgTypeGameStarted) != 1 {
		t.Errorf("Expected exactly one gameStarted, got %d", f.bc.count(network.MsgTypeGameStarted))
	}
	if len(f.obs.started) != 1 {
		t.Errorf("Expected observer to see one start, got %d", len(f.obs.started))
	}

	if err := f.lobby.Join("p5"); !errors.Is(err, ErrLobbyInProgress) {
		t.Errorf("Expected ErrLobbyInProgress joining an active lobby, got %v", err)
	}
	if f.lobby.Size() != 4 {
		t.Errorf("Rejected join must not mutate the lobby, size=%d", f.lobby.Size())
	}
}

func TestJoin_Full(t *testing.T) {
	f := newFixture(t)
	f.lobby.rules.MinPlayers = 100 // keep the lobby waiting

	for i := 1; i <= 8; i++ {
		f.join(t, fmt.Sprintf("p%d", i))
	}
	if err := f.lobby.Join("p9"); !errors.Is(err, ErrLobbyFull) {
		t.Errorf("Expected ErrLobbyFull for the 9th player, got %v", err)
	}
	if err := f.lobby.Join("p1"); !errors.Is(err, ErrAlreadyJoined) {
		t.Errorf("Expected ErrAlreadyJoined, got %v", err)
	}
}

func TestJoin_NotifiesCallerAndRoom(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p2", "p1")

	var list network.PlayerList
	if err := json.Unmarshal(f.bc.last(network.MsgTypePlayerList), &list); err != nil {
		t.Fatalf("playerList not JSON: %v", err)
	}
	if len(list.Players) != 2 || list.Players[0] != "p1" || list.Players[1] != "p2" {
		t.Errorf("Unexpected player list %v", list.Players)
	}

	last := f.bc.direct[len(f.bc.direct)-1]
	if last.to != "p1" || last.msgID != network.MsgTypeJoinedLobby {
		t.Fatalf("Expected joinedLobby to p1, got %+v", last)
	}
	var joined network.JoinedLobby
	_ = json.Unmarshal(last.data, &joined)
	if joined.LobbyID != "test-lobby" {
		t.Errorf("Expected lobby id test-lobby, got %q", joined.LobbyID)
	}

	pos := f.world.Position(f.body("p1"))
	if pos.X != 400 || pos.Y != 300 {
		t.Errorf("Expected spawn at arena center, got %+v", pos)
	}
}

func TestLeave_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2")
	body := f.body("p1")

	left, remaining := f.lobby.Leave("p1")
	if !left || remaining != 1 {
		t.Errorf("Expected (true, 1), got (%v, %d)", left, remaining)
	}
	if _, ok := f.world.Bodies[body]; ok {
		t.Error("Player body should be destroyed on leave")
	}
	left, remaining = f.lobby.Leave("p1")
	if left || remaining != 1 {
		t.Errorf("Second leave should be a no-op, got (%v, %d)", left, remaining)
	}
}

func TestTick_WaitingDoesNotSimulate(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2")

	f.lobby.Tick()
	if f.world.Steps != 0 {
		t.Errorf("Waiting lobby must not step physics, got %d steps", f.world.Steps)
	}
}

func TestTick_AppliesScaledInput(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.lobby.SetInput("p1", game.Input{X: 1, Z: -0.5})
	f.lobby.Tick()

	if f.world.Steps != 1 || f.world.LastDt != 1.0/60 {
		t.Errorf("Expected one step of 1/60, got %d steps dt=%f", f.world.Steps, f.world.LastDt)
	}
	forces := f.world.LastForces()
	if len(forces) != 1 || forces[0].X != 1000 || forces[0].Y != -500 {
		t.Errorf("Expected force (1000,-500), got %v", forces)
	}
	if f.bc.count(network.MsgTypeGameUpdate) != 1 {
		t.Errorf("Expected one gameUpdate per tick, got %d", f.bc.count(network.MsgTypeGameUpdate))
	}
}

func TestTick_ShrinkAfterExactlyTenSeconds(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	for i := 0; i < 299; i++ {
		f.lobby.Tick()
	}
	if a := f.lobby.Arena(); a.Width != 800 || a.Height != 600 {
		t.Fatalf("Arena shrank early: %+v", a)
	}

	f.lobby.Tick()
	a := f.lobby.Arena()
	if a.Width != 780 || a.Height != 580 {
		t.Fatalf("Expected 780x580 after 300 ticks, got %vx%v", a.Width, a.Height)
	}
	if n := f.world.StaticCount(); n != 4 {
		t.Errorf("Expected exactly 4 walls after rebuild, got %d", n)
	}
	maxX := 0.0
	for _, b := range f.world.Bodies {
		if b.Static && b.Position.X > maxX {
			maxX = b.Position.X
		}
	}
	if maxX != 785 {
		t.Errorf("Expected right wall centered at x=785, got %v", maxX)
	}

	var snap game.Snapshot
	if err := json.Unmarshal(f.bc.last(network.MsgTypeGameUpdate), &snap); err != nil {
		t.Fatalf("gameUpdate not JSON: %v", err)
	}
	if snap.Arena.Width != 780 {
		t.Errorf("Snapshot should carry shrunk arena, got %v", snap.Arena.Width)
	}
}

func TestTick_KnockoutCreditedWithinWindow(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.world.Contact(f.body("p1"), f.body("p2"))
	f.lobby.Tick()

	f.clock.Advance(1500 * time.Millisecond)
	f.place("p2", -50, 300)
	f.bc.reset()
	f.lobby.Tick()

	if f.lobby.players["p2"].IsAlive {
		t.Fatal("p2 should be eliminated")
	}
	if !f.world.Bodies[f.body("p2")].Parked {
		t.Error("Eliminated body should be parked")
	}
	if got := f.lobby.players["p1"].Score; got != 1 {
		t.Errorf("Expected p1 score 1, got %d", got)
	}

	var ko game.Knockout
	if err := json.Unmarshal(f.bc.last(network.MsgTypeKnockout), &ko); err != nil {
		t.Fatalf("knockout not JSON: %v", err)
	}
	if ko.PlayerID != "p1" || ko.VictimID != "p2" || ko.Timestamp != f.clock.now.UnixMilli() {
		t.Errorf("Unexpected knockout %+v", ko)
	}

	snap := f.lobby.Snapshot()
	if snap.LastKnockout == nil || snap.LastKnockout.VictimID != "p2" {
		t.Errorf("Snapshot should retain the last knockout, got %+v", snap.LastKnockout)
	}
	if snap.Players["p2"].IsAlive {
		t.Error("Snapshot should report p2 dead")
	}
	if f.lobby.State() != state.Active {
		t.Errorf("Three players alive, lobby should stay active, got %q", f.lobby.State())
	}
}

func TestTick_StaleContactNotCredited(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.world.Contact(f.body("p1"), f.body("p2"))
	f.lobby.Tick()

	f.clock.Advance(2500 * time.Millisecond)
	f.place("p2", -50, 300)
	f.bc.reset()
	f.lobby.Tick()

	if f.lobby.players["p2"].IsAlive {
		t.Fatal("p2 should be eliminated")
	}
	if got := f.lobby.players["p1"].Score; got != 0 {
		t.Errorf("Stale contact must not score, got %d", got)
	}
	if f.bc.count(network.MsgTypeKnockout) != 0 {
		t.Error("No knockout should be broadcast for an uncredited elimination")
	}
}

func TestTick_DeadPlayersIgnored(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")
	for _, id := range []string{"p1", "p2", "p3", "p4"} {
		f.lobby.SetInput(id, game.Input{X: 1})
	}

	f.place("p4", 900, 300)
	f.lobby.Tick()
	if f.lobby.players["p4"].IsAlive {
		t.Fatal("p4 should be eliminated")
	}

	// contacts with a dead body are dropped
	f.world.Contact(f.body("p4"), f.body("p1"))
	f.lobby.Tick()
	if f.lobby.players["p1"].LastContact != nil {
		t.Error("Contact with an eliminated player must not be recorded")
	}
	if n := len(f.world.LastForces()); n != 3 {
		t.Errorf("Expected forces for 3 alive players, got %d", n)
	}
}

func TestTick_BoundaryContactIgnored(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.world.Contact(f.lobby.boundaries[0], f.body("p1"))
	f.world.Contact(f.body("p2"), f.lobby.boundaries[3])
	f.lobby.Tick()

	for _, id := range []string{"p1", "p2"} {
		if c := f.lobby.players[id].LastContact; c != nil {
			t.Errorf("Wall contact must not be recorded for %s, got %+v", id, c)
		}
	}
}

func TestTick_RemovedPlayerContactIgnored(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")
	gone := f.body("p2")

	if left, _ := f.lobby.Leave("p2"); !left {
		t.Fatal("p2 should leave")
	}
	f.world.Contact(gone, f.body("p1"))
	f.lobby.Tick()

	if c := f.lobby.players["p1"].LastContact; c != nil {
		t.Errorf("Contact with a departed player must not be recorded, got %+v", c)
	}
}

func TestTick_EndsWithWinnerAndMessageOrder(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.world.Contact(f.body("p1"), f.body("p2"))
	f.lobby.Tick()
	f.clock.Advance(time.Second)

	f.place("p2", -50, 300)
	f.place("p3", 400, 700)
	f.place("p4", 900, 300)
	f.bc.reset()
	f.lobby.Tick()

	if got := f.lobby.State(); got != state.Ended {
		t.Fatalf("Expected ended, got %q", got)
	}
	want := []uint16{network.MsgTypeKnockout, network.MsgTypeGameEnded, network.MsgTypeGameUpdate}
	got := f.bc.ids()
	if len(got) != len(want) {
		t.Fatalf("Expected messages %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Expected messages %v, got %v", want, got)
		}
	}

	if string(f.bc.last(network.MsgTypeGameEnded)) != `{"winner":"p1"}` {
		t.Errorf("Unexpected gameEnded payload %s", f.bc.last(network.MsgTypeGameEnded))
	}
	var snap game.Snapshot
	_ = json.Unmarshal(f.bc.last(network.MsgTypeGameUpdate), &snap)
	if snap.State != state.Ended {
		t.Errorf("Final gameUpdate should report ended, got %q", snap.State)
	}

	if len(f.obs.results) != 1 {
		t.Fatalf("Expected one result, got %d", len(f.obs.results))
	}
	res := f.obs.results[0]
	if res.Winner == nil || *res.Winner != "p1" || res.Scores["p1"] != 1 {
		t.Errorf("Unexpected result %+v", res)
	}

	steps := f.world.Steps
	f.lobby.Tick()
	if f.world.Steps != steps {
		t.Error("Ended lobby must not simulate")
	}
	if err := f.lobby.Join("late"); !errors.Is(err, ErrLobbyInProgress) {
		t.Errorf("Expected join to an ended lobby to fail, got %v", err)
	}
}

func TestTick_EndsWithoutWinner(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.place("p1", -50, 300)
	f.place("p2", -50, 300)
	f.place("p3", 400, 700)
	f.place("p4", 900, 300)
	f.lobby.Tick()

	if got := f.lobby.State(); got != state.Ended {
		t.Fatalf("Expected ended, got %q", got)
	}
	if string(f.bc.last(network.MsgTypeGameEnded)) != `{"winner":null}` {
		t.Errorf("Unexpected gameEnded payload %s", f.bc.last(network.MsgTypeGameEnded))
	}
}

func TestTick_PhysicsFaultEndsLobby(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1", "p2", "p3", "p4")

	f.world.PanicOnStep = true
	f.lobby.Tick()

	if got := f.lobby.State(); got != state.Ended {
		t.Fatalf("Expected ended after a physics fault, got %q", got)
	}
	if string(f.bc.last(network.MsgTypeGameEnded)) != `{"winner":null}` {
		t.Errorf("Unexpected gameEnded payload %s", f.bc.last(network.MsgTypeGameEnded))
	}
}

func TestClose_ReleasesWorld(t *testing.T) {
	f := newFixture(t)
	f.join(t, "p1")

	f.lobby.Close()
	if !f.world.Destroyed || len(f.world.Bodies) != 0 {
		t.Error("Close should destroy every body and the world")
	}
	if len(f.bc.closed) != 1 {
		t.Error("Close should close the broadcast room")
	}
	if err := f.lobby.Join("p2"); !errors.Is(err, ErrLobbyClosed) {
		t.Errorf("Expected ErrLobbyClosed, got %v", err)
	}
	// second close is a no-op
	f.lobby.Close()
}
