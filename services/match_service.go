// services/match_service.go
package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wfunc/broinkroyale/game"
	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/models"
	"github.com/wfunc/broinkroyale/persistence"
)

var (
	ErrServiceClosed = errors.New("match service closed")
	ErrQueueFull     = errors.New("match queue full")
)

const saveTimeout = 5 * time.Second

// MatchService exports finished matches to a Database from a background
// worker. GameEnded never blocks the caller: when the queue is full the
// record is dropped and logged.
type MatchService struct {
	db    persistence.Database
	queue chan models.MatchRecord
	done  chan struct{}

	closeOnce sync.Once
	mutex     sync.RWMutex
	closed    bool
	dropped   int
}

func NewMatchService(db persistence.Database, queueSize int) *MatchService {
	if queueSize <= 0 {
		queueSize = 64
	}
	s := &MatchService{
		db:    db,
		queue: make(chan models.MatchRecord, queueSize),
		done:  make(chan struct{}),
	}
	go s.worker()
	return s
}

func (s *MatchService) worker() {
	defer close(s.done)
	for rec := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		if err := s.db.SaveMatch(ctx, rec); err != nil {
			logger.Log.Errorf("save match of lobby %s: %v", rec.LobbyID, err)
		}
		cancel()
	}
}

// Enqueue queues a record for export.
func (s *MatchService) Enqueue(rec models.MatchRecord) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.closed {
		return ErrServiceClosed
	}
	select {
	case s.queue <- rec:
		return nil
	default:
		s.dropped++
		logger.Log.Warnf("match queue full, dropping record of lobby %s", rec.LobbyID)
		return ErrQueueFull
	}
}

// Dropped is the number of records lost to a full queue.
func (s *MatchService) Dropped() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.dropped
}

// --- lobby.Observer ---

func (s *MatchService) GameStarted(string) {}

func (s *MatchService) Knockout(string, game.Knockout) {}

func (s *MatchService) GameEnded(result game.Result) {
	_ = s.Enqueue(models.NewMatchRecord(result))
}

func (s *MatchService) RecentMatches(ctx context.Context, limit int) ([]models.MatchRecord, error) {
	return s.db.RecentMatches(ctx, limit)
}

func (s *MatchService) LastMatch(ctx context.Context, lobbyID string) (models.MatchRecord, error) {
	return s.db.LastMatch(ctx, lobbyID)
}

// Close stops accepting records and waits for the queue to drain or ctx to
// expire.
func (s *MatchService) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mutex.Lock()
		s.closed = true
		close(s.queue)
		s.mutex.Unlock()
	})
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
