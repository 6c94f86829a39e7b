package x11

import (
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// MoveResizeWindow moves and resizes a window to the specified geometry
func (c *Connection) MoveResizeWindow(windowID xproto.Window, x, y, width, height int) error {
	// A maximized window ignores geometry requests on most window managers.
	_ = c.SetMaximized(windowID, false)

	err := ewmh.MoveresizeWindow(c.XUtil, windowID, x, y, width, height)
	if err != nil {
		// Fallback to direct window manipulation
		xwindow.New(c.XUtil, windowID).MoveResize(x, y, width, height)
	}
	return nil
}

// SetMaximized adds or removes both maximized states of a window.
func (c *Connection) SetMaximized(windowID xproto.Window, maximized bool) error {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return err
	}

	hasMaxH := false
	hasMaxV := false
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			hasMaxH = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			hasMaxV = true
		}
	}

	if maximized && hasMaxH && hasMaxV {
		return nil
	}
	if !maximized && !hasMaxH && !hasMaxV {
		return nil
	}

	action := ewmh.StateRemove
	if maximized {
		action = ewmh.StateAdd
	}
	return ewmh.WmStateReqExtra(c.XUtil, windowID, action,
		"_NET_WM_STATE_MAXIMIZED_HORZ", "_NET_WM_STATE_MAXIMIZED_VERT", 2)
}

// WindowType returns the EWMH type of a window without the
// _NET_WM_WINDOW_TYPE_ prefix, lower-cased. Windows that set no type are
// reported as "normal".
func (c *Connection) WindowType(windowID xproto.Window) string {
	types, err := ewmh.WmWindowTypeGet(c.XUtil, windowID)
	if err != nil || len(types) == 0 {
		return "normal"
	}
	return strings.ToLower(strings.TrimPrefix(types[0], "_NET_WM_WINDOW_TYPE_"))
}

// IsMinimized reports whether a window carries _NET_WM_STATE_HIDDEN.
func (c *Connection) IsMinimized(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, state := range states {
		if state == "_NET_WM_STATE_HIDDEN" {
			return true
		}
	}
	return false
}

// IsSkipped reports whether a window asked to be left out of taskbars and
// pagers, or is fullscreen.
func (c *Connection) IsSkipped(windowID xproto.Window) bool {
	states, err := ewmh.WmStateGet(c.XUtil, windowID)
	if err != nil {
		return false
	}
	for _, state := range states {
		switch state {
		case "_NET_WM_STATE_SKIP_TASKBAR", "_NET_WM_STATE_FULLSCREEN":
			return true
		}
	}
	return false
}

func (c *Connection) GetActiveWindow() (xproto.Window, error) {
	return ewmh.ActiveWindowGet(c.XUtil)
}
