// scheduler/scheduler.go
package scheduler

import (
	"context"
	"time"

	"github.com/wfunc/broinkroyale/lobby"
	"github.com/wfunc/broinkroyale/logger"
	"github.com/wfunc/broinkroyale/state"
)

// TickObserver is told how long each frame took and how many lobbies it saw.
type TickObserver interface {
	ObserveTick(d time.Duration, live, active int)
}

// Scheduler drives every lobby of a registry at a fixed rate. Lobbies are
// ticked one after another; a frame never overlaps the next.
type Scheduler struct {
	registry *lobby.Registry
	interval time.Duration
	observer TickObserver
}

func New(registry *lobby.Registry, interval time.Duration, observer TickObserver) *Scheduler {
	return &Scheduler{
		registry: registry,
		interval: interval,
		observer: observer,
	}
}

// Run ticks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logger.Log.Infof("tick scheduler started, interval %s", s.interval)
	for {
		select {
		case <-ctx.Done():
			logger.Log.Info("tick scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.TickOnce()
		}
	}
}

// TickOnce runs one frame over a snapshot of the live lobbies.
func (s *Scheduler) TickOnce() {
	start := time.Now()
	lobbies := s.registry.Lobbies()

	active := 0
	for _, l := range lobbies {
		if l.State() != state.Active {
			continue
		}
		active++
		l.Tick()
	}

	if s.observer != nil {
		s.observer.ObserveTick(time.Since(start), len(lobbies), active)
	}
}
