package mocks

import (
	"sort"
	"sync"
	"time"

	"github.com/sqrrr/gamehub/internal/dependencies/clock"
)

// MockClock is a mock implementation of Clock for testing.
// Timers only fire when the clock is moved with Advance or Set.
type MockClock struct {
	mu          sync.Mutex
	CurrentTime time.Time
	timers      []*mockTimer
}

// Ensure MockClock implements Clock
var _ clock.Clock = (*MockClock)(nil)

type mockTimer struct {
	clock   *MockClock
	fireAt  time.Time
	fn      func()
	stopped bool
	fired   bool
}

// Stop cancels the timer if it has not fired
func (t *mockTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// NewMockClock creates a MockClock set to the given time
func NewMockClock(t time.Time) *MockClock {
	return &MockClock{CurrentTime: t}
}

// Now returns the mocked current time
func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.CurrentTime
}

// AfterFunc registers f to run when the clock passes now+d
func (c *MockClock) AfterFunc(d time.Duration, f func()) clock.Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &mockTimer{clock: c, fireAt: c.CurrentTime.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves the clock forward by the given duration, firing due timers in order
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.CurrentTime.Add(d)
	c.mu.Unlock()
	c.Set(target)
}

// Set sets the clock to the given time, firing due timers in order.
// Callbacks run synchronously on the caller's goroutine, outside the clock lock.
func (c *MockClock) Set(t time.Time) {
	for {
		c.mu.Lock()
		next := c.nextDueLocked(t)
		if next == nil {
			c.CurrentTime = t
			c.mu.Unlock()
			return
		}
		if next.fireAt.After(c.CurrentTime) {
			c.CurrentTime = next.fireAt
		}
		next.fired = true
		c.mu.Unlock()
		next.fn()
	}
}

// PendingTimers returns how many timers are armed and not yet fired
func (c *MockClock) PendingTimers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (c *MockClock) nextDueLocked(until time.Time) *mockTimer {
	live := c.timers[:0]
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	c.timers = live
	sort.SliceStable(c.timers, func(i, j int) bool {
		return c.timers[i].fireAt.Before(c.timers[j].fireAt)
	})
	if len(c.timers) == 0 || c.timers[0].fireAt.After(until) {
		return nil
	}
	return c.timers[0]
}
