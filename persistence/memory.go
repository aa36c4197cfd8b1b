package persistence

import (
	"context"
	"sync"

	"github.com/wfunc/broinkroyale/models"
)

// DefaultMemoryCapacity bounds how many records a MemoryStore keeps.
const DefaultMemoryCapacity = 1000

// MemoryStore keeps the newest match records in process memory. It is used
// when no database is configured.
type MemoryStore struct {
	records  []models.MatchRecord // oldest first
	capacity int
	mutex    sync.RWMutex
}

var _ Database = (*MemoryStore)(nil)

func NewMemoryStore(capacity int) *MemoryStore {
	if capacity <= 0 {
		capacity = DefaultMemoryCapacity
	}
	return &MemoryStore{capacity: capacity}
}

func (m *MemoryStore) SaveMatch(ctx context.Context, rec models.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.records = append(m.records, rec)
	if over := len(m.records) - m.capacity; over > 0 {
		m.records = append(m.records[:0:0], m.records[over:]...)
	}
	return nil
}

func (m *MemoryStore) RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	if limit <= 0 || limit > len(m.records) {
		limit = len(m.records)
	}
	out := make([]models.MatchRecord, 0, limit)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.records[i])
	}
	return out, nil
}

func (m *MemoryStore) LastMatch(ctx context.Context, lobbyID string) (models.MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return models.MatchRecord{}, err
	}
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	for i := len(m.records) - 1; i >= 0; i-- {
		if m.records[i].LobbyID == lobbyID {
			return m.records[i], nil
		}
	}
	return models.MatchRecord{}, ErrRecordNotFound
}

func (m *MemoryStore) Close() error {
	return nil
}
