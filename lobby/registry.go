// lobby/registry.go
package lobby

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/logger"
)

// Registry 管理所有大厅. It holds the only strong reference to every lobby;
// removing a lobby from the registry closes it.
type Registry struct {
	rules       game.Rules
	broadcaster Broadcaster
	observer    Observer
	newWorld    WorldFactory
	newID       func() string
	clock       func() time.Time

	lobbies map[string]*Lobby
	mutex   sync.RWMutex
}

// RegistryOption customizes a Registry.
type RegistryOption func(*Registry)

func WithClock(clock func() time.Time) RegistryOption {
	return func(r *Registry) { r.clock = clock }
}

func WithIDGenerator(gen func() string) RegistryOption {
	return func(r *Registry) { r.newID = gen }
}

func WithWorldFactory(f WorldFactory) RegistryOption {
	return func(r *Registry) { r.newWorld = f }
}

func WithObserver(o Observer) RegistryOption {
	return func(r *Registry) { r.observer = o }
}

// NewRegistry 创建一个新的大厅管理器
func NewRegistry(rules game.Rules, broadcaster Broadcaster, opts ...RegistryOption) *Registry {
	r := &Registry{
		rules:       rules,
		broadcaster: broadcaster,
		observer:    nopObserver{},
		newWorld:    Box2DWorlds,
		newID:       uuid.NewString,
		clock:       time.Now,
		lobbies:     make(map[string]*Lobby),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GetOrCreate returns the lobby with the given id, creating it when the id
// is unknown. An empty id always creates a lobby with a fresh id.
func (r *Registry) GetOrCreate(id string) *Lobby {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	l, _ := r.getOrCreateLocked(id)
	return l
}

func (r *Registry) getOrCreateLocked(id string) (*Lobby, bool) {
	if id != "" {
		if l, ok := r.lobbies[id]; ok {
			return l, false
		}
	} else {
		id = r.newID()
		for r.lobbies[id] != nil {
			id = r.newID()
		}
	}
	l := New(id, Options{
		Rules:       r.rules,
		World:       r.newWorld(r.rules),
		Broadcaster: r.broadcaster,
		Observer:    r.observer,
		Clock:       r.clock,
	})
	r.lobbies[id] = l
	logger.Log.Infof("lobby %s created", id)
	return l, true
}

// Get 获取一个大厅
func (r *Registry) Get(id string) (*Lobby, bool) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	l, ok := r.lobbies[id]
	return l, ok
}

// Join puts sessionID into lobby id, creating the lobby if needed. A lobby
// created for a join that then fails is discarded again.
func (r *Registry) Join(id, sessionID string) (*Lobby, error) {
	return r.Switch("", id, sessionID)
}

// Switch moves sessionID from lobby from into lobby to as one step. The new
// lobby is joined first and from is only left once that succeeded, so a
// rejected join leaves the current membership untouched. An empty from
// means the session is in no lobby.
func (r *Registry) Switch(from, to, sessionID string) (*Lobby, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if from != "" && from == to {
		return nil, ErrAlreadyJoined
	}
	l, created := r.getOrCreateLocked(to)
	if err := l.Join(sessionID); err != nil {
		if created {
			r.removeLocked(l.ID)
		}
		return nil, err
	}
	if from == "" {
		return l, nil
	}
	if old, ok := r.lobbies[from]; ok {
		if left, remaining := old.Leave(sessionID); left && remaining == 0 {
			r.removeLocked(from)
		}
	}
	return l, nil
}

// Leave removes sessionID from lobby id and destroys the lobby once it is
// empty. Unknown lobbies and sessions are ignored.
func (r *Registry) Leave(id, sessionID string) bool {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	l, ok := r.lobbies[id]
	if !ok {
		return false
	}
	left, remaining := l.Leave(sessionID)
	if left && remaining == 0 {
		r.removeLocked(id)
	}
	return left
}

// SetInput forwards an input update. Missing lobbies or players are a no-op.
func (r *Registry) SetInput(id, sessionID string, in game.Input) bool {
	l, ok := r.Get(id)
	if !ok {
		return false
	}
	return l.SetInput(sessionID, in)
}

// Remove 从管理器中移除并关闭一个大厅
func (r *Registry) Remove(id string) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	r.removeLocked(id)
}

func (r *Registry) removeLocked(id string) {
	if l, ok := r.lobbies[id]; ok {
		l.Close()
		delete(r.lobbies, id)
		logger.Log.Infof("lobby %s destroyed", id)
	}
}

// Lobbies returns a copy of the live lobbies ordered by id.
func (r *Registry) Lobbies() []*Lobby {
	r.mutex.RLock()
	list := make([]*Lobby, 0, len(r.lobbies))
	for _, l := range r.lobbies {
		list = append(list, l)
	}
	r.mutex.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

func (r *Registry) Summaries() []Summary {
	lobbies := r.Lobbies()
	out := make([]Summary, 0, len(lobbies))
	for _, l := range lobbies {
		out = append(out, l.Summary())
	}
	return out
}

func (r *Registry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()
	return len(r.lobbies)
}

// Close destroys every lobby.
func (r *Registry) Close() {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	for id := range r.lobbies {
		r.removeLocked(id)
	}
}
