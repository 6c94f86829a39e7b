// Package daemon runs the layout engine against a live window system: it
// owns the event loop, turns X events into engine events, serves IPC, and
// applies config reloads.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/1broseidon/autotile/internal/config"
	"github.com/1broseidon/autotile/internal/debounce"
	"github.com/1broseidon/autotile/internal/engine"
	"github.com/1broseidon/autotile/internal/hotkeys"
	"github.com/1broseidon/autotile/internal/ipc"
	"github.com/1broseidon/autotile/internal/logging"
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/runtimepath"
	"github.com/1broseidon/autotile/internal/tiling"
)

// Platform is what the daemon needs from the window system.
type Platform interface {
	platform.Backend
	platform.Watcher
}

// eventSource is implemented by backends whose callbacks need a dispatch loop.
type eventSource interface {
	EventLoop()
	StopEventLoop()
}

// Options configures a Daemon.
type Options struct {
	// ConfigPath is re-read on reload. Empty means the default location.
	ConfigPath string
	// SocketPath overrides the IPC socket location. Empty means runtimepath.SocketPath.
	SocketPath string
	Clock      debounce.Clock
	Logger     *slog.Logger
}

// Daemon wires the session, engine, tracker, reconciler and IPC server.
type Daemon struct {
	backend    Platform
	cfg        *config.Config
	configPath string
	socketPath string
	logger     *slog.Logger

	loop       *Loop
	session    *tiling.Session
	engine     *engine.Engine
	tracker    *Tracker
	reconciler *Reconciler
	hotkeys    *hotkeys.Handler
}

var _ ipc.Controller = (*Daemon)(nil)

// New builds a daemon. Nothing touches the window system until Run.
func New(backend Platform, cfg *config.Config, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	configPath := opts.ConfigPath
	if configPath == "" {
		path, err := config.DefaultConfigPath()
		if err != nil {
			return nil, err
		}
		configPath = path
	}

	loop := NewLoop(logger)
	session := tiling.NewSession(backend, cfg, logger)
	eng, err := engine.New(session, cfg, engine.Options{
		Logger: logger,
		Clock:  opts.Clock,
		Post:   loop.Post,
	})
	if err != nil {
		return nil, err
	}
	session.OnLayoutModified(eng.LayoutModified)
	tracker := NewTracker(backend, session, eng, TrackerOptions{
		Post:   loop.Post,
		Clock:  opts.Clock,
		Settle: cfg.Debounce.MoveSettle(),
		Logger: logger,
	})
	reconciler := NewReconciler(ReconcilerConfig{
		Interval: cfg.ReconcileInterval,
		Logger:   logger,
		Post:     loop.Post,
	}, session, eng.OutputsChanged, tracker.Refresh)

	return &Daemon{
		backend:    backend,
		cfg:        cfg,
		configPath: configPath,
		socketPath: opts.SocketPath,
		logger:     logger,
		loop:       loop,
		session:    session,
		engine:     eng,
		tracker:    tracker,
		reconciler: reconciler,
	}, nil
}

// Run starts every component and blocks until ctx is cancelled. SIGHUP
// reloads the configuration.
func (d *Daemon) Run(ctx context.Context) error {
	// The loop outlives ctx so shutdown can still run on it.
	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()
	go d.loop.Run(loopCtx)

	var startErr error
	if err := d.loop.Call(ctx, func() { startErr = d.start() }); err != nil {
		return err
	}
	if startErr != nil {
		return startErr
	}

	socketPath := d.socketPath
	if socketPath == "" {
		path, err := runtimepath.SocketPath()
		if err != nil {
			return fmt.Errorf("failed to resolve IPC socket path: %w", err)
		}
		socketPath = path
	}
	server := ipc.NewServer(socketPath, d, d.logger)
	if err := server.Start(); err != nil {
		return err
	}
	defer server.Stop()

	if err := d.call(d.registerHotkeys); err != nil {
		return err
	}

	if src, ok := d.backend.(eventSource); ok {
		go src.EventLoop()
		defer src.StopEventLoop()
	}

	go d.reconciler.Run(ctx)

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	d.logger.Info("daemon running", "config", d.configPath, "socket", socketPath)
	for {
		select {
		case <-ctx.Done():
			d.logger.Info("daemon stopping")
			if err := d.call(func() {
				d.tracker.Stop()
				if d.hotkeys != nil {
					d.hotkeys.Unregister()
				}
			}); err != nil {
				d.logger.Warn("failed to release window watches", "error", err)
			}
			return nil
		case <-hup:
			d.logger.Info("SIGHUP received, reloading config")
			if err := d.Reload(); err != nil {
				d.logger.Error("config reload failed", "error", err)
			}
		}
	}
}

// start runs on the loop: build trees, watch windows, tile what exists.
func (d *Daemon) start() error {
	if _, err := d.session.SyncOutputs(); err != nil {
		return fmt.Errorf("failed to read outputs: %w", err)
	}
	if err := d.tracker.Start(); err != nil {
		return fmt.Errorf("failed to watch windows: %w", err)
	}
	d.logger.Info("tracking windows", "count", d.tracker.Tracked(), "outputs", len(d.session.Outputs()))
	d.engine.Retile()
	return nil
}

func (d *Daemon) registerHotkeys() {
	h, err := hotkeys.NewHandler(d.backend, d.logger)
	if err != nil {
		if !errors.Is(err, hotkeys.ErrNoX11) {
			d.logger.Warn("hotkeys unavailable", "error", err)
		}
		return
	}
	d.hotkeys = h
	d.bindRetile(d.cfg.RetileHotkey)
}

func (d *Daemon) bindRetile(keys string) {
	if err := d.hotkeys.RegisterRetile(keys, func() {
		d.loop.Post(d.engine.Retile)
	}); err != nil {
		d.logger.Warn("failed to register retile hotkey", "keys", keys, "error", err)
	}
}

// Status implements ipc.Controller.
func (d *Daemon) Status() ([]ipc.OutputStatus, error) {
	var status []engine.OutputStatus
	if err := d.call(func() { status = d.engine.Status() }); err != nil {
		return nil, err
	}
	return toIPCStatus(status), nil
}

// Retile implements ipc.Controller. Outputs and the client list are re-read
// first so a manual retile also picks up changes no event reported.
func (d *Daemon) Retile() error {
	return d.call(func() {
		d.reconciler.ReconcileNow()
		d.engine.Retile()
	})
}

// Reload implements ipc.Controller. On any error the running configuration
// is left untouched.
func (d *Daemon) Reload() error {
	res, err := config.LoadFromPath(d.configPath)
	if err != nil {
		return err
	}

	var applyErr error
	if err := d.call(func() { applyErr = d.apply(res.Config) }); err != nil {
		return err
	}
	return applyErr
}

func (d *Daemon) apply(cfg *config.Config) error {
	if err := d.engine.UpdateConfig(cfg); err != nil {
		return err
	}
	if err := d.session.UpdateConfig(cfg); err != nil {
		d.logger.Warn("failed to resync outputs after reload", "error", err)
	}
	d.tracker.SetSettle(cfg.Debounce.MoveSettle())
	if cfg.LogLevel != d.cfg.LogLevel && !logging.SetLevel(d.logger, cfg.LogLevel) {
		d.logger.Warn("log_level change needs a restart with this logger", "log_level", cfg.LogLevel)
	}
	if cfg.RetileHotkey != d.cfg.RetileHotkey && d.hotkeys != nil {
		d.hotkeys.Unregister()
		d.bindRetile(cfg.RetileHotkey)
	}
	d.cfg = cfg
	d.logger.Info("config applied", "path", d.configPath)
	d.engine.Retile()
	return nil
}

func (d *Daemon) call(f func()) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return d.loop.Call(ctx, f)
}

func toIPCStatus(in []engine.OutputStatus) []ipc.OutputStatus {
	out := make([]ipc.OutputStatus, 0, len(in))
	for _, o := range in {
		st := ipc.OutputStatus{
			Name:   o.Name,
			State:  o.State,
			Bounds: toIPCRect(o.Bounds),
		}
		for _, l := range o.Leaves {
			leaf := ipc.LeafStatus{Tile: int(l.Tile), Geometry: toIPCRect(l.Geometry), Windows: []uint32{}}
			for _, id := range l.Windows {
				leaf.Windows = append(leaf.Windows, uint32(id))
			}
			st.Leaves = append(st.Leaves, leaf)
		}
		for _, id := range o.Untiled {
			st.Untiled = append(st.Untiled, uint32(id))
		}
		out = append(out, st)
	}
	return out
}

func toIPCRect(r platform.Rect) ipc.Rect {
	return ipc.Rect{X: r.X, Y: r.Y, Width: r.Width, Height: r.Height}
}
