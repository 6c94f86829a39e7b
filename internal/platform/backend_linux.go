//go:build linux

package platform

import (
	"fmt"
	"sort"
	"strings"

	"github.com/1broseidon/autotile/internal/x11"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
)

// LinuxBackend wraps an existing X11 connection behind the platform Backend interface.
type LinuxBackend struct {
	conn *x11.Connection
}

var (
	_ Backend = (*LinuxBackend)(nil)
	_ Watcher = (*LinuxBackend)(nil)
)

// NewLinuxBackend creates a Linux platform backend from an existing X11 connection.
func NewLinuxBackend(conn *x11.Connection) *LinuxBackend {
	return &LinuxBackend{conn: conn}
}

// NewLinuxBackendFromDisplay creates a new Linux backend by opening a fresh X11 connection.
func NewLinuxBackendFromDisplay() (*LinuxBackend, error) {
	conn, err := x11.NewConnection()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X11: %w", err)
	}
	return &LinuxBackend{conn: conn}, nil
}

// Disconnect closes the underlying X11 connection.
func (b *LinuxBackend) Disconnect() {
	if b != nil && b.conn != nil {
		b.conn.Close()
	}
}

// EventLoop starts the X11 event loop (blocking).
func (b *LinuxBackend) EventLoop() {
	if b != nil && b.conn != nil {
		b.conn.EventLoop()
	}
}

// StopEventLoop makes a running EventLoop return.
func (b *LinuxBackend) StopEventLoop() {
	if b != nil && b.conn != nil {
		b.conn.Quit()
	}
}

// XUtil returns the underlying xgbutil connection for X11-specific operations.
func (b *LinuxBackend) XUtil() *xgbutil.XUtil {
	if b == nil || b.conn == nil {
		return nil
	}
	return b.conn.XUtil
}

// RootWindow returns the X11 root window ID.
func (b *LinuxBackend) RootWindow() xproto.Window {
	if b == nil || b.conn == nil {
		return 0
	}
	return b.conn.Root
}

// Outputs returns all active monitors ordered by position.
func (b *LinuxBackend) Outputs() ([]Output, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	monitors, err := conn.GetMonitors()
	if err != nil {
		return nil, err
	}

	outputs := make([]Output, 0, len(monitors))
	for _, m := range monitors {
		outputs = append(outputs, Output{Name: m.Name, Bounds: rectFromMonitor(m)})
	}

	sort.Slice(outputs, func(i, j int) bool {
		if outputs[i].Bounds.X != outputs[j].Bounds.X {
			return outputs[i].Bounds.X < outputs[j].Bounds.X
		}
		return outputs[i].Bounds.Y < outputs[j].Bounds.Y
	})

	return outputs, nil
}

// UsableArea returns the monitor area minus dock struts for a desktop.
func (b *LinuxBackend) UsableArea(output string, desktop int) (Rect, error) {
	conn, err := b.connection()
	if err != nil {
		return Rect{}, err
	}

	m, err := conn.UsableArea(output, desktop)
	if err != nil {
		return Rect{}, err
	}
	return rectFromMonitor(m), nil
}

// Windows lists managed top-level windows in _NET_CLIENT_LIST order.
func (b *LinuxBackend) Windows() ([]Window, error) {
	conn, err := b.connection()
	if err != nil {
		return nil, err
	}

	outputs, err := b.Outputs()
	if err != nil {
		return nil, err
	}

	clients, err := ewmh.ClientListGet(conn.XUtil)
	if err != nil {
		return nil, err
	}

	windows := make([]Window, 0, len(clients))
	for _, windowID := range clients {
		if conn.IsSkipped(windowID) {
			continue
		}

		rect, ok := b.windowRect(windowID)
		if !ok {
			continue
		}

		desktop, err := conn.GetWindowDesktop(windowID)
		if err != nil {
			desktop = AllDesktops
		}

		output := OutputAt(outputs, rect.Center())
		if output == "" && len(outputs) > 0 {
			output = outputs[0].Name
		}

		windows = append(windows, Window{
			ID:         WindowID(windowID),
			Class:      b.windowClass(windowID),
			Title:      b.windowTitle(windowID),
			Type:       WindowType(conn.WindowType(windowID)),
			Bounds:     rect,
			Minimized:  conn.IsMinimized(windowID),
			Output:     output,
			Desktop:    desktop,
			Activities: conn.GetWindowActivities(windowID),
		})
	}

	return windows, nil
}

// CurrentDesktop returns the active virtual desktop.
func (b *LinuxBackend) CurrentDesktop() (int, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}
	return conn.GetCurrentDesktop()
}

// CurrentActivity returns the active KDE activity, or "".
func (b *LinuxBackend) CurrentActivity() (string, error) {
	conn, err := b.connection()
	if err != nil {
		return "", err
	}
	return conn.GetCurrentActivity(), nil
}

// ActiveWindow returns the currently active/focused window ID.
func (b *LinuxBackend) ActiveWindow() (WindowID, error) {
	conn, err := b.connection()
	if err != nil {
		return 0, err
	}

	wid, err := conn.GetActiveWindow()
	if err != nil {
		return 0, err
	}
	return WindowID(wid), nil
}

// MoveResize moves and resizes a window to the specified bounds.
func (b *LinuxBackend) MoveResize(windowID WindowID, bounds Rect) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}

	return conn.MoveResizeWindow(
		xproto.Window(windowID),
		bounds.X,
		bounds.Y,
		bounds.Width,
		bounds.Height,
	)
}

// SetMaximized toggles the EWMH maximized state of a window.
func (b *LinuxBackend) SetMaximized(windowID WindowID, maximized bool) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.SetMaximized(xproto.Window(windowID), maximized)
}

// WatchRoot implements Watcher.
func (b *LinuxBackend) WatchRoot(onProperty func(atom string)) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.WatchRoot(onProperty)
}

// WatchWindow implements Watcher.
func (b *LinuxBackend) WatchWindow(windowID WindowID, handlers WindowHandlers) error {
	conn, err := b.connection()
	if err != nil {
		return err
	}
	return conn.WatchWindow(xproto.Window(windowID), handlers.Configured, handlers.Property)
}

// UnwatchWindow implements Watcher.
func (b *LinuxBackend) UnwatchWindow(windowID WindowID) {
	if conn, err := b.connection(); err == nil {
		conn.UnwatchWindow(xproto.Window(windowID))
	}
}

// Pointer implements Watcher.
func (b *LinuxBackend) Pointer() (Point, bool, error) {
	conn, err := b.connection()
	if err != nil {
		return Point{}, false, err
	}
	x, y, pressed, err := conn.QueryPointer()
	if err != nil {
		return Point{}, false, err
	}
	return Point{X: x, Y: y}, pressed, nil
}

func (b *LinuxBackend) connection() (*x11.Connection, error) {
	if b == nil || b.conn == nil {
		return nil, fmt.Errorf("x11 backend connection is nil")
	}
	return b.conn, nil
}

func rectFromMonitor(m x11.Monitor) Rect {
	return Rect{
		X:      m.X,
		Y:      m.Y,
		Width:  m.Width,
		Height: m.Height,
	}
}

func (b *LinuxBackend) windowRect(windowID xproto.Window) (Rect, bool) {
	conn := b.conn
	geom, err := xproto.GetGeometry(conn.XUtil.Conn(), xproto.Drawable(windowID)).Reply()
	if err != nil {
		return Rect{}, false
	}

	translate, err := xproto.TranslateCoordinates(
		conn.XUtil.Conn(),
		windowID,
		conn.Root,
		0, 0,
	).Reply()
	if err != nil {
		return Rect{}, false
	}

	return Rect{
		X:      int(translate.DstX),
		Y:      int(translate.DstY),
		Width:  int(geom.Width),
		Height: int(geom.Height),
	}, true
}

func (b *LinuxBackend) windowClass(windowID xproto.Window) string {
	wmClass, err := icccm.WmClassGet(b.conn.XUtil, windowID)
	if err != nil {
		return ""
	}
	// WM_CLASS instance names carry the reverse-DNS id on KDE applications.
	if strings.Contains(wmClass.Instance, ".") {
		return strings.TrimSpace(wmClass.Instance)
	}
	return strings.TrimSpace(wmClass.Class)
}

func (b *LinuxBackend) windowTitle(windowID xproto.Window) string {
	title, err := ewmh.WmNameGet(b.conn.XUtil, windowID)
	if err == nil {
		title = strings.TrimSpace(title)
		if title != "" {
			return title
		}
	}

	title, err = icccm.WmNameGet(b.conn.XUtil, windowID)
	if err == nil {
		return strings.TrimSpace(title)
	}

	return ""
}
