// Package platformtest provides an in-memory window system for tests.
package platformtest

import (
	"fmt"
	"sync"

	"github.com/1broseidon/autotile/internal/platform"
)

// Move records one MoveResize call.
type Move struct {
	ID     platform.WindowID
	Bounds platform.Rect
}

// Backend is a fake platform.Backend and platform.Watcher. Window output
// membership is recomputed from the window centre on every Windows call, like
// the X11 backend does.
type Backend struct {
	mu        sync.Mutex
	outputs   []platform.Output
	usable    map[string]platform.Rect
	windows   []platform.Window
	desktop   int
	activity  string
	active    platform.WindowID
	cursor    platform.Point
	pressed   bool
	maximized map[platform.WindowID]bool

	Moves    []Move
	Watched  map[platform.WindowID]platform.WindowHandlers
	RootProp func(atom string)
}

var (
	_ platform.Backend = (*Backend)(nil)
	_ platform.Watcher = (*Backend)(nil)
)

// New creates a fake with the given outputs. Their usable area equals their bounds.
func New(outputs ...platform.Output) *Backend {
	b := &Backend{
		usable:    make(map[string]platform.Rect),
		maximized: make(map[platform.WindowID]bool),
		Watched:   make(map[platform.WindowID]platform.WindowHandlers),
	}
	for _, o := range outputs {
		b.outputs = append(b.outputs, o)
		b.usable[o.Name] = o.Bounds
	}
	return b
}

// SetOutputs replaces the output list.
func (b *Backend) SetOutputs(outputs ...platform.Output) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.outputs = append([]platform.Output(nil), outputs...)
	for _, o := range outputs {
		if _, ok := b.usable[o.Name]; !ok {
			b.usable[o.Name] = o.Bounds
		}
	}
}

// SetUsableArea overrides the usable area of an output.
func (b *Backend) SetUsableArea(output string, r platform.Rect) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.usable[output] = r
}

// AddWindow appends a window. Desktop defaults to the current desktop and
// Type to normal.
func (b *Backend) AddWindow(w platform.Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w.Type == "" {
		w.Type = platform.WindowTypeNormal
	}
	b.windows = append(b.windows, w)
}

// RemoveWindow deletes a window.
func (b *Backend) RemoveWindow(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, w := range b.windows {
		if w.ID == id {
			b.windows = append(b.windows[:i], b.windows[i+1:]...)
			return
		}
	}
}

// SetMinimized changes the minimized flag of a window.
func (b *Backend) SetMinimized(id platform.WindowID, minimized bool) {
	b.update(id, func(w *platform.Window) { w.Minimized = minimized })
}

// SetWindowDesktop moves a window to another desktop.
func (b *Backend) SetWindowDesktop(id platform.WindowID, desktop int) {
	b.update(id, func(w *platform.Window) { w.Desktop = desktop })
}

// SetBounds changes a window's geometry without recording a move.
func (b *Backend) SetBounds(id platform.WindowID, r platform.Rect) {
	b.update(id, func(w *platform.Window) { w.Bounds = r })
}

// SetDesktop switches the current desktop.
func (b *Backend) SetDesktop(desktop int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.desktop = desktop
}

// SetActivity switches the current activity.
func (b *Backend) SetActivity(activity string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.activity = activity
}

// SetActive focuses a window.
func (b *Backend) SetActive(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.active = id
}

// SetPointer sets the cursor position and primary button state.
func (b *Backend) SetPointer(p platform.Point, pressed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = p
	b.pressed = pressed
}

// Window returns the current state of a window.
func (b *Backend) Window(id platform.WindowID) (platform.Window, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, w := range b.windows {
		if w.ID == id {
			w.Output = b.outputFor(w)
			return w, true
		}
	}
	return platform.Window{}, false
}

// Maximized reports the last SetMaximized value for a window.
func (b *Backend) Maximized(id platform.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maximized[id]
}

// ResetMoves clears the recorded MoveResize calls.
func (b *Backend) ResetMoves() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Moves = nil
}

func (b *Backend) Outputs() ([]platform.Output, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]platform.Output(nil), b.outputs...), nil
}

func (b *Backend) UsableArea(output string, desktop int) (platform.Rect, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.usable[output]
	if !ok {
		return platform.Rect{}, fmt.Errorf("output %q not found", output)
	}
	return r, nil
}

func (b *Backend) Windows() ([]platform.Window, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]platform.Window, 0, len(b.windows))
	for _, w := range b.windows {
		w.Output = b.outputFor(w)
		w.Activities = append([]string(nil), w.Activities...)
		out = append(out, w)
	}
	return out, nil
}

func (b *Backend) CurrentDesktop() (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.desktop, nil
}

func (b *Backend) CurrentActivity() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.activity, nil
}

func (b *Backend) ActiveWindow() (platform.WindowID, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.active, nil
}

func (b *Backend) MoveResize(id platform.WindowID, r platform.Rect) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.windows {
		if b.windows[i].ID == id {
			b.windows[i].Bounds = r
			b.maximized[id] = false
			b.Moves = append(b.Moves, Move{ID: id, Bounds: r})
			return nil
		}
	}
	return fmt.Errorf("window %d not found", id)
}

func (b *Backend) SetMaximized(id platform.WindowID, maximized bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maximized[id] = maximized
	return nil
}

func (b *Backend) WatchRoot(onProperty func(atom string)) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.RootProp = onProperty
	return nil
}

func (b *Backend) WatchWindow(id platform.WindowID, handlers platform.WindowHandlers) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Watched[id] = handlers
	return nil
}

func (b *Backend) UnwatchWindow(id platform.WindowID) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.Watched, id)
}

func (b *Backend) Pointer() (platform.Point, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor, b.pressed, nil
}

func (b *Backend) update(id platform.WindowID, fn func(w *platform.Window)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.windows {
		if b.windows[i].ID == id {
			fn(&b.windows[i])
			return
		}
	}
}

func (b *Backend) outputFor(w platform.Window) string {
	if name := platform.OutputAt(b.outputs, w.Bounds.Center()); name != "" {
		return name
	}
	if w.Output != "" {
		return w.Output
	}
	if len(b.outputs) > 0 {
		return b.outputs[0].Name
	}
	return ""
}

// EmitRoot delivers a root property change to the WatchRoot callback.
func (b *Backend) EmitRoot(atom string) {
	b.mu.Lock()
	fn := b.RootProp
	b.mu.Unlock()
	if fn != nil {
		fn(atom)
	}
}

// EmitConfigure delivers a ConfigureNotify for a watched window.
func (b *Backend) EmitConfigure(id platform.WindowID) {
	b.mu.Lock()
	h, ok := b.Watched[id]
	b.mu.Unlock()
	if ok && h.Configured != nil {
		h.Configured()
	}
}

// EmitProperty delivers a property change for a watched window.
func (b *Backend) EmitProperty(id platform.WindowID, atom string) {
	b.mu.Lock()
	h, ok := b.Watched[id]
	b.mu.Unlock()
	if ok && h.Property != nil {
		h.Property(atom)
	}
}

// IsWatched reports whether a window has handlers registered.
func (b *Backend) IsWatched(id platform.WindowID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.Watched[id]
	return ok
}
