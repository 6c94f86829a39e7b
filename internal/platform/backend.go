package platform

// WindowID is a platform-neutral window identifier.
type WindowID uint32

// AllDesktops is the desktop value of a window that is visible on every desktop.
const AllDesktops = -1

// Point is a position in screen coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect describes a rectangular region in screen coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Contains reports whether p lies inside r. The right and bottom edges are
// exclusive so adjacent rectangles never both contain a point.
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Center returns the centre point of r.
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Inset shrinks r by the given edge amounts. Width and height never drop below 1.
func (r Rect) Inset(top, bottom, left, right int) Rect {
	out := Rect{
		X:      r.X + left,
		Y:      r.Y + top,
		Width:  r.Width - left - right,
		Height: r.Height - top - bottom,
	}
	if out.Width < 1 {
		out.Width = 1
	}
	if out.Height < 1 {
		out.Height = 1
	}
	return out
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// WindowType is the EWMH role of a window, lower-cased without the
// _NET_WM_WINDOW_TYPE_ prefix.
type WindowType string

const (
	WindowTypeNormal       WindowType = "normal"
	WindowTypeDialog       WindowType = "dialog"
	WindowTypeUtility      WindowType = "utility"
	WindowTypeSplash       WindowType = "splash"
	WindowTypeToolbar      WindowType = "toolbar"
	WindowTypeMenu         WindowType = "menu"
	WindowTypeDock         WindowType = "dock"
	WindowTypeDesktop      WindowType = "desktop"
	WindowTypeNotification WindowType = "notification"
	WindowTypeTooltip      WindowType = "tooltip"
)

// Output is one display area.
type Output struct {
	Name   string
	Bounds Rect
}

// Window contains metadata and geometry for a top-level window.
type Window struct {
	ID         WindowID
	Class      string
	Title      string
	Type       WindowType
	Bounds     Rect
	Minimized  bool
	Output     string
	Desktop    int
	Activities []string
}

// Backend abstracts window-system operations.
type Backend interface {
	Outputs() ([]Output, error)
	// UsableArea is the output area minus panels and other reservations
	// on the given desktop.
	UsableArea(output string, desktop int) (Rect, error)
	Windows() ([]Window, error)
	CurrentDesktop() (int, error)
	// CurrentActivity returns "" when the window system has no activities.
	CurrentActivity() (string, error)
	ActiveWindow() (WindowID, error)
	MoveResize(windowID WindowID, bounds Rect) error
	SetMaximized(windowID WindowID, maximized bool) error
}

// WindowHandlers receives change notifications for a single window.
type WindowHandlers struct {
	Configured func()
	Property   func(atom string)
}

// Watcher delivers window-system change notifications. Callbacks run on the
// watcher's own goroutine.
type Watcher interface {
	WatchRoot(onProperty func(atom string)) error
	WatchWindow(windowID WindowID, handlers WindowHandlers) error
	UnwatchWindow(windowID WindowID)
	// Pointer returns the cursor position and whether the primary button is held.
	Pointer() (Point, bool, error)
}

// OutputAt returns the name of the output containing p, or "" if none does.
func OutputAt(outputs []Output, p Point) string {
	for _, o := range outputs {
		if o.Bounds.Contains(p) {
			return o.Name
		}
	}
	return ""
}
