// broadcast/broadcast.go
package broadcast

import (
	"errors"
	"sort"
	"sync"

	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/session"
)

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrSessionNotFound = errors.New("session not found")
)

// 广播接口
type Broadcaster interface {
	JoinRoom(roomID, sessionID string)
	LeaveRoom(roomID, sessionID string)
	CloseRoom(roomID string)
	BroadcastToRoom(roomID string, msgID uint16, data []byte) error
	SendToSession(sessionID string, msgID uint16, data []byte) error
}

// RoomBroadcaster keeps room membership itself, so fan-out never needs to
// reach back into the lobby that is broadcasting.
type RoomBroadcaster struct {
	sessionManager *session.Manager
	rooms          map[string]map[string]struct{}
	mutex          sync.RWMutex
}

var _ Broadcaster = (*RoomBroadcaster)(nil)

func NewRoomBroadcaster(sessionManager *session.Manager) *RoomBroadcaster {
	return &RoomBroadcaster{
		sessionManager: sessionManager,
		rooms:          make(map[string]map[string]struct{}),
	}
}

func (b *RoomBroadcaster) JoinRoom(roomID, sessionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	members, ok := b.rooms[roomID]
	if !ok {
		members = make(map[string]struct{})
		b.rooms[roomID] = members
	}
	members[sessionID] = struct{}{}
}

func (b *RoomBroadcaster) LeaveRoom(roomID, sessionID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	members, ok := b.rooms[roomID]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(b.rooms, roomID)
	}
}

func (b *RoomBroadcaster) CloseRoom(roomID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	delete(b.rooms, roomID)
}

// members returns the sorted session ids subscribed to a room.
func (b *RoomBroadcaster) members(roomID string) []string {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	out := make([]string, 0, len(b.rooms[roomID]))
	for id := range b.rooms[roomID] {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// BroadcastToRoom queues data for every member. Delivery failures are logged
// and skipped; the transport handles the disconnect.
func (b *RoomBroadcaster) BroadcastToRoom(roomID string, msgID uint16, data []byte) error {
	b.mutex.RLock()
	members, exists := b.rooms[roomID]
	if !exists {
		b.mutex.RUnlock()
		return ErrRoomNotFound
	}
	ids := make([]string, 0, len(members))
	for id := range members {
		ids = append(ids, id)
	}
	b.mutex.RUnlock()

	for _, id := range ids {
		s, ok := b.sessionManager.Get(id)
		if !ok {
			continue
		}
		if err := s.Send(msgID, data); err != nil {
			logger.Log.Debugf("broadcast msg %d to session %s: %v", msgID, id, err)
		}
	}
	return nil
}

func (b *RoomBroadcaster) SendToSession(sessionID string, msgID uint16, data []byte) error {
	s, ok := b.sessionManager.Get(sessionID)
	if !ok {
		return ErrSessionNotFound
	}
	return s.Send(msgID, data)
}
