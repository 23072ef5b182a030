// Package persist coalesces bursts of local mutations into single backend
// writes and guarantees that a write never lands under the wrong project.
package persist

import (
	"sync"
	"time"
)

// Scheduler is a reusable debounce primitive. Scheduling under a key cancels
// any pending timer for the same key, so rapid mutation bursts collapse to
// the last scheduled callback (last write wins within the window).
type Scheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	timers map[string]*time.Timer
}

// NewScheduler creates a scheduler with a fixed debounce window.
func NewScheduler(delay time.Duration) *Scheduler {
	return &Scheduler{
		delay:  delay,
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms (or re-arms) the timer for key. When it fires, fn runs once
// unless the entry was cancelled or superseded in the meantime.
func (s *Scheduler) Schedule(key string, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pending, ok := s.timers[key]; ok {
		pending.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(s.delay, func() {
		s.mu.Lock()
		current, ok := s.timers[key]
		if !ok || current != timer {
			// Superseded or cancelled after the timer fired but before it
			// acquired the lock.
			s.mu.Unlock()
			return
		}
		delete(s.timers, key)
		s.mu.Unlock()

		fn()
	})
	s.timers[key] = timer
}

// Cancel drops the pending timer for key, if any, and reports whether one
// was pending.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	pending, ok := s.timers[key]
	if !ok {
		return false
	}
	pending.Stop()
	delete(s.timers, key)
	return true
}

// CancelAll drops every pending timer.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, pending := range s.timers {
		pending.Stop()
		delete(s.timers, key)
	}
}

// Pending reports whether a timer is armed for key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}
