package daemon

import (
	"context"
	"log/slog"
	"time"
)

// OutputSyncer rebuilds per-output state from the window system.
// tiling.Session implements it.
type OutputSyncer interface {
	SyncOutputs() (bool, error)
}

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
	// Post runs a pass on the daemon loop. Nil runs it on the ticker goroutine.
	Post func(func())
}

// Reconciler periodically checks for output and client-list drift that no
// event reported, and corrects it.
type Reconciler struct {
	interval time.Duration
	outputs  OutputSyncer
	changed  func()
	refresh  func()
	post     func(func())
	logger   *slog.Logger
}

// NewReconciler creates a reconciler. changed runs after outputs changed;
// refresh re-reads the client list on every pass.
func NewReconciler(cfg ReconcilerConfig, outputs OutputSyncer, changed, refresh func()) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	post := cfg.Post
	if post == nil {
		post = func(f func()) { f() }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		outputs:  outputs,
		changed:  changed,
		refresh:  refresh,
		post:     post,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.post(r.reconcile)
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	changed, err := r.outputs.SyncOutputs()
	if err != nil {
		r.logger.Error("reconciler: failed to read outputs", "error", err)
		return
	}
	if changed {
		r.logger.Info("reconciler: outputs changed")
		if r.changed != nil {
			r.changed()
		}
	}
	if r.refresh != nil {
		r.refresh()
	}
}

// ReconcileNow runs a pass on the caller's goroutine.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
