// Package debounce coalesces bursts of triggers into a single deferred action.
package debounce

import (
	"sync"
	"time"
)

// Timer is a pending single-shot callback.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether it did.
	Stop() bool
}

// Clock schedules single-shot callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemClock struct{}

func (systemClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemClock returns a Clock backed by time.AfterFunc.
func SystemClock() Clock {
	return systemClock{}
}

// Scheduler holds at most one pending action. Scheduling a new action cancels
// the previous one, so only the last call within the quiet window runs.
//
// Timers fire on their own goroutine; the action itself is handed to post so
// it runs wherever the owner serializes its work.
type Scheduler struct {
	mu      sync.Mutex
	clock   Clock
	post    func(func())
	gen     uint64
	timer   Timer
	pending bool
}

// New creates a scheduler. A nil clock uses SystemClock and a nil post runs
// the action on the timer goroutine.
func New(clock Clock, post func(func())) *Scheduler {
	if clock == nil {
		clock = SystemClock()
	}
	if post == nil {
		post = func(f func()) { f() }
	}
	return &Scheduler{clock: clock, post: post}
}

// Debounce replaces any pending action with action, due after d.
func (s *Scheduler) Debounce(d time.Duration, action func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.pending = true
	s.timer = s.clock.AfterFunc(d, func() { s.fire(gen, action) })
}

// Cancel drops the pending action, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.pending = false
}

// Pending reports whether an action is scheduled and has not run yet.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *Scheduler) fire(gen uint64, action func()) {
	if !s.current(gen) {
		return
	}
	// The generation is checked again once the task reaches the owner; a
	// Debounce or Cancel may land while it is queued.
	s.post(func() {
		s.mu.Lock()
		if s.gen != gen {
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.pending = false
		s.mu.Unlock()

		action()
	})
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen == gen
}
