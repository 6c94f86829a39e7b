package daemon

import (
	"context"
	"fmt"
	"log/slog"
)

// ErrLoopStopped is returned by Call once the loop has exited.
var ErrLoopStopped = fmt.Errorf("event loop stopped")

// Loop runs posted tasks one at a time on a single goroutine. Everything
// that touches the session or the engine goes through it.
type Loop struct {
	tasks  chan func()
	done   chan struct{}
	logger *slog.Logger
}

// NewLoop creates a loop. Call Run to start it.
func NewLoop(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		tasks:  make(chan func(), 256),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Post queues f. It never blocks once the loop has stopped; f is dropped.
func (l *Loop) Post(f func()) {
	select {
	case l.tasks <- f:
	case <-l.done:
	}
}

// Call runs f on the loop and waits for it to finish.
func (l *Loop) Call(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	task := func() {
		defer close(finished)
		f()
	}

	select {
	case l.tasks <- task:
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrLoopStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run executes tasks until ctx is cancelled. A panicking task is logged and
// the loop keeps going.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return
		case f := <-l.tasks:
			l.run(f)
		}
	}
}

func (l *Loop) run(f func()) {
	defer func() {
		if err := recover(); err != nil {
			l.logger.Error("event loop task panicked", "error", err)
		}
	}()
	f()
}
