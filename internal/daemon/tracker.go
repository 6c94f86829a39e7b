package daemon

import (
	"log/slog"
	"time"

	"github.com/1broseidon/autotile/internal/debounce"
	"github.com/1broseidon/autotile/internal/platform"
)

// Events receives what the tracker observes. engine.Engine implements it.
type Events interface {
	WindowAdded(id platform.WindowID)
	WindowRemoved(id platform.WindowID, output string)
	MinimizedChanged(id platform.WindowID, minimized bool)
	MoveStepped(id platform.WindowID)
	MoveFinished(id platform.WindowID, cursor platform.Point)
	OutputChanged(id platform.WindowID, previous string)
	WorkspaceChanged()
}

// WindowSource lists windows and knows which geometry was pushed to them.
// tiling.Session implements it.
type WindowSource interface {
	Windows() ([]platform.Window, error)
	Pushed(id platform.WindowID) (platform.Rect, bool)
	Forget(id platform.WindowID)
}

// Root window properties the tracker reacts to.
const (
	atomClientList      = "_NET_CLIENT_LIST"
	atomCurrentDesktop  = "_NET_CURRENT_DESKTOP"
	atomCurrentActivity = "_KDE_NET_CURRENT_ACTIVITY"
	atomWindowState     = "_NET_WM_STATE"
	atomWindowDesktop   = "_NET_WM_DESKTOP"
	atomWindowActivity  = "_KDE_NET_WM_ACTIVITIES"
)

type watchEntry struct {
	output    string
	minimized bool
	moving    bool
	settle    *debounce.Scheduler
}

// Tracker turns X events into engine events. It keeps one registration per
// client window; every method runs on the daemon loop.
type Tracker struct {
	watcher platform.Watcher
	windows WindowSource
	events  Events
	post    func(func())
	clock   debounce.Clock
	settle  time.Duration
	entries map[platform.WindowID]*watchEntry
	logger  *slog.Logger
}

// TrackerOptions configures a Tracker.
type TrackerOptions struct {
	// Post hands X callbacks to the daemon loop. Nil runs them inline.
	Post   func(func())
	Clock  debounce.Clock
	Settle time.Duration
	Logger *slog.Logger
}

// NewTracker creates a tracker. Call Start to begin watching.
func NewTracker(watcher platform.Watcher, windows WindowSource, events Events, opts TrackerOptions) *Tracker {
	post := opts.Post
	if post == nil {
		post = func(f func()) { f() }
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		watcher: watcher,
		windows: windows,
		events:  events,
		post:    post,
		clock:   opts.Clock,
		settle:  opts.Settle,
		entries: make(map[platform.WindowID]*watchEntry),
		logger:  logger,
	}
}

// Start watches the root window and registers the windows that already
// exist without announcing them.
func (t *Tracker) Start() error {
	if err := t.watcher.WatchRoot(func(atom string) {
		t.post(func() { t.rootChanged(atom) })
	}); err != nil {
		return err
	}
	t.sync(false)
	return nil
}

// SetSettle changes the quiet time that ends an interactive move.
func (t *Tracker) SetSettle(d time.Duration) {
	t.settle = d
}

// Refresh diffs the client list against the registrations and reports
// added, removed, minimized and re-homed windows.
func (t *Tracker) Refresh() {
	t.sync(true)
}

// Tracked returns the number of registered windows.
func (t *Tracker) Tracked() int {
	return len(t.entries)
}

// Stop drops every registration.
func (t *Tracker) Stop() {
	for id, entry := range t.entries {
		entry.settle.Cancel()
		t.watcher.UnwatchWindow(id)
		delete(t.entries, id)
	}
}

func (t *Tracker) sync(announce bool) {
	windows, err := t.windows.Windows()
	if err != nil {
		t.logger.Warn("failed to list windows", "error", err)
		return
	}

	present := make(map[platform.WindowID]bool, len(windows))
	for _, w := range windows {
		present[w.ID] = true

		entry, ok := t.entries[w.ID]
		if !ok {
			if !t.register(w) {
				continue
			}
			if announce {
				t.events.WindowAdded(w.ID)
			}
			continue
		}

		if entry.minimized != w.Minimized {
			entry.minimized = w.Minimized
			t.events.MinimizedChanged(w.ID, w.Minimized)
		}
		if !entry.moving && entry.output != w.Output {
			previous := entry.output
			entry.output = w.Output
			t.events.OutputChanged(w.ID, previous)
		}
	}

	for id, entry := range t.entries {
		if present[id] {
			continue
		}
		t.unregister(id, entry)
		t.events.WindowRemoved(id, entry.output)
	}
}

func (t *Tracker) register(w platform.Window) bool {
	id := w.ID
	err := t.watcher.WatchWindow(id, platform.WindowHandlers{
		Configured: func() { t.post(func() { t.configured(id) }) },
		Property:   func(atom string) { t.post(func() { t.windowProperty(id, atom) }) },
	})
	if err != nil {
		// The window can vanish between the client list read and the watch.
		t.logger.Debug("failed to watch window", "window", id, "error", err)
		return false
	}

	t.entries[id] = &watchEntry{
		output:    w.Output,
		minimized: w.Minimized,
		settle:    debounce.New(t.clock, t.post),
	}
	t.logger.Debug("tracking window", "window", id, "class", w.Class, "output", w.Output)
	return true
}

func (t *Tracker) unregister(id platform.WindowID, entry *watchEntry) {
	entry.settle.Cancel()
	t.watcher.UnwatchWindow(id)
	t.windows.Forget(id)
	delete(t.entries, id)
	t.logger.Debug("untracking window", "window", id)
}

func (t *Tracker) rootChanged(atom string) {
	switch atom {
	case atomClientList:
		t.Refresh()
	case atomCurrentDesktop, atomCurrentActivity:
		t.logger.Debug("workspace changed", "atom", atom)
		t.events.WorkspaceChanged()
	}
}

func (t *Tracker) windowProperty(id platform.WindowID, atom string) {
	if _, ok := t.entries[id]; !ok {
		return
	}
	switch atom {
	case atomWindowState:
		t.Refresh()
	case atomWindowDesktop, atomWindowActivity:
		t.events.WorkspaceChanged()
	}
}

// configured handles a ConfigureNotify. A geometry change the session did not
// push while button 1 is held is a user move step.
func (t *Tracker) configured(id platform.WindowID) {
	entry, ok := t.entries[id]
	if !ok {
		return
	}

	if entry.moving {
		entry.settle.Debounce(t.settle, func() { t.settleMove(id) })
		return
	}

	_, pressed, err := t.watcher.Pointer()
	if err != nil {
		t.logger.Debug("failed to query pointer", "error", err)
		return
	}
	w, found := t.window(id)
	if !found {
		return
	}

	if pressed {
		if pushed, ok := t.windows.Pushed(id); ok && pushed == w.Bounds {
			return
		}
		entry.moving = true
		t.events.MoveStepped(id)
		entry.settle.Debounce(t.settle, func() { t.settleMove(id) })
		return
	}

	if entry.output != w.Output {
		previous := entry.output
		entry.output = w.Output
		t.events.OutputChanged(id, previous)
	}
}

// settleMove ends a move once the button is released.
func (t *Tracker) settleMove(id platform.WindowID) {
	entry, ok := t.entries[id]
	if !ok || !entry.moving {
		return
	}

	cursor, pressed, err := t.watcher.Pointer()
	if err != nil {
		t.logger.Debug("failed to query pointer", "error", err)
	}
	if pressed {
		entry.settle.Debounce(t.settle, func() { t.settleMove(id) })
		return
	}

	entry.moving = false
	if w, found := t.window(id); found {
		entry.output = w.Output
	}
	t.events.MoveFinished(id, cursor)
}

func (t *Tracker) window(id platform.WindowID) (platform.Window, bool) {
	windows, err := t.windows.Windows()
	if err != nil {
		t.logger.Warn("failed to list windows", "error", err)
		return platform.Window{}, false
	}
	for _, w := range windows {
		if w.ID == id {
			return w, true
		}
	}
	return platform.Window{}, false
}
