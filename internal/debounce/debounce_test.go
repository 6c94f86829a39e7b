package debounce

import (
	"sync"
	"testing"
	"time"
)

func TestDebounceRunsOnlyLastCall(t *testing.T) {
	clock := NewManualClock()
	s := New(clock, nil)

	var calls []int
	for i := 1; i <= 5; i++ {
		arg := i
		s.Debounce(50*time.Millisecond, func() { calls = append(calls, arg) })
		clock.Advance(2 * time.Millisecond)
	}
	if !s.Pending() {
		t.Fatalf("expected a pending action")
	}

	clock.Advance(50 * time.Millisecond)

	if len(calls) != 1 || calls[0] != 5 {
		t.Fatalf("calls = %v, want [5]", calls)
	}
	if s.Pending() {
		t.Fatalf("Pending() = true after the action ran")
	}
}

func TestDebounceWaitsForQuietWindow(t *testing.T) {
	clock := NewManualClock()
	s := New(clock, nil)

	ran := 0
	s.Debounce(100*time.Millisecond, func() { ran++ })
	clock.Advance(99 * time.Millisecond)
	if ran != 0 {
		t.Fatalf("ran = %d before the delay elapsed", ran)
	}
	clock.Advance(time.Millisecond)
	if ran != 1 {
		t.Fatalf("ran = %d, want 1", ran)
	}
}

func TestCancelDropsPendingAction(t *testing.T) {
	clock := NewManualClock()
	s := New(clock, nil)

	ran := false
	s.Debounce(10*time.Millisecond, func() { ran = true })
	s.Cancel()
	clock.Advance(time.Second)

	if ran {
		t.Fatalf("cancelled action ran")
	}
	if clock.Pending() != 0 {
		t.Fatalf("clock still has %d timers", clock.Pending())
	}
}

func TestSupersededActionQueuedOnLoopDoesNotRun(t *testing.T) {
	clock := NewManualClock()
	var queue []func()
	s := New(clock, func(f func()) { queue = append(queue, f) })

	var got []string
	s.Debounce(10*time.Millisecond, func() { got = append(got, "first") })
	clock.Advance(10 * time.Millisecond)
	if len(queue) != 1 {
		t.Fatalf("queue = %d tasks, want 1", len(queue))
	}

	// A new trigger lands before the loop drains the queued task.
	s.Debounce(10*time.Millisecond, func() { got = append(got, "second") })
	queue[0]()
	if len(got) != 0 {
		t.Fatalf("superseded action ran: %v", got)
	}

	clock.Advance(10 * time.Millisecond)
	for _, f := range queue[1:] {
		f()
	}
	if len(got) != 1 || got[0] != "second" {
		t.Fatalf("got = %v, want [second]", got)
	}
}

func TestActionMayRescheduleItself(t *testing.T) {
	clock := NewManualClock()
	s := New(clock, nil)

	runs := 0
	var action func()
	action = func() {
		runs++
		if runs < 3 {
			s.Debounce(10*time.Millisecond, action)
		}
	}
	s.Debounce(10*time.Millisecond, action)
	clock.Advance(100 * time.Millisecond)

	if runs != 3 {
		t.Fatalf("runs = %d, want 3", runs)
	}
}

func TestSystemClockFires(t *testing.T) {
	var mu sync.Mutex
	done := make(chan struct{})
	s := New(nil, nil)

	count := 0
	for i := 0; i < 5; i++ {
		s.Debounce(20*time.Millisecond, func() {
			mu.Lock()
			count++
			mu.Unlock()
			close(done)
		})
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("debounced action never ran")
	}
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
}
