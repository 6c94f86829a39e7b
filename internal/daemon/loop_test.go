package daemon

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/1broseidon/autotile/internal/logging"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLoop(logging.Discard())
	go l.Run(ctx)

	var order []int
	for i := 0; i < 5; i++ {
		i := i
		l.Post(func() { order = append(order, i) })
	}
	if err := l.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	for i, v := range order {
		if v != i {
			t.Fatalf("order = %v, want 0..4", order)
		}
	}
	if len(order) != 5 {
		t.Fatalf("ran %d tasks, want 5", len(order))
	}
}

func TestLoopSurvivesPanics(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	l := NewLoop(logging.Discard())
	go l.Run(ctx)

	l.Post(func() { panic("boom") })

	ran := false
	if err := l.Call(ctx, func() { ran = true }); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !ran {
		t.Fatalf("task after panic did not run")
	}
}

func TestCallAfterStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewLoop(logging.Discard())
	stopped := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
	defer callCancel()
	if err := l.Call(callCtx, func() {}); !errors.Is(err, ErrLoopStopped) {
		t.Fatalf("Call after stop = %v, want ErrLoopStopped", err)
	}

	// Post must not block either.
	l.Post(func() {})
}
