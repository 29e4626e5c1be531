// Package scheduler keeps every pending timer under a logical name so that
// rescheduling replaces, cancelling is explicit, and shutdown clears them all.
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
)

// Scheduler is a registry of named one-shot timers
type Scheduler struct {
	clock  clock.Clock
	logger *slog.Logger

	mu      sync.Mutex
	timers  map[string]*entry
	nextGen uint64
	stopped bool
}

type entry struct {
	gen   uint64
	timer clock.Timer
}

// New creates a Scheduler
func New(clk clock.Clock, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		clock:  clk,
		logger: logger.With(slog.String("component", "scheduler")),
		timers: make(map[string]*entry),
	}
}

// Schedule runs fn after d under the given name. Any timer already pending
// under that name is cancelled first. Returns false once the scheduler is stopped.
func (s *Scheduler) Schedule(name string, d time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if old, ok := s.timers[name]; ok {
		old.timer.Stop()
	}

	s.nextGen++
	gen := s.nextGen
	e := &entry{gen: gen}
	e.timer = s.clock.AfterFunc(d, func() {
		if !s.claim(name, gen) {
			return
		}
		fn()
	})
	s.timers[name] = e
	return true
}

// claim removes the entry if it is still the current generation for name.
// A replaced or cancelled timer that raced past Stop loses here.
func (s *Scheduler) claim(name string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[name]
	if !ok || e.gen != gen {
		return false
	}
	delete(s.timers, name)
	return true
}

// Cancel stops the named timer. Returns true if a pending timer was removed.
func (s *Scheduler) Cancel(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.timers[name]
	if !ok {
		return false
	}
	e.timer.Stop()
	delete(s.timers, name)
	return true
}

// Pending reports whether a timer is armed under name
func (s *Scheduler) Pending(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[name]
	return ok
}

// Len returns the number of armed timers
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Stop cancels every timer and refuses new ones
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, e := range s.timers {
		e.timer.Stop()
		delete(s.timers, name)
	}
	if !s.stopped {
		s.logger.Info("scheduler stopped")
	}
	s.stopped = true
}
