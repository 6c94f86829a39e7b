package x11

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/xprop"
)

// GetCurrentDesktop returns the current virtual desktop number (0-indexed).
// Uses _NET_CURRENT_DESKTOP atom. Returns 0 with an error if detection fails.
func (c *Connection) GetCurrentDesktop() (int, error) {
	desktop, err := ewmh.CurrentDesktopGet(c.XUtil)
	if err != nil {
		return 0, fmt.Errorf("failed to get current desktop: %w", err)
	}
	return int(desktop), nil
}

// GetWindowDesktop returns the desktop number a window is on.
// Uses _NET_WM_DESKTOP atom. Returns -1 for "sticky" windows (visible on all desktops).
func (c *Connection) GetWindowDesktop(windowID xproto.Window) (int, error) {
	desktop, err := ewmh.WmDesktopGet(c.XUtil, windowID)
	if err != nil {
		return 0, fmt.Errorf("failed to get window desktop: %w", err)
	}
	// 0xFFFFFFFF means the window is on all desktops (sticky)
	if desktop == 0xFFFFFFFF {
		return -1, nil
	}
	return int(desktop), nil
}

// GetCurrentActivity returns the KDE activity id published on the root
// window, or "" when the window manager has no activities.
func (c *Connection) GetCurrentActivity() string {
	value, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, c.Root, "_KDE_NET_CURRENT_ACTIVITY"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(value)
}

// GetWindowActivities returns the KDE activities a window belongs to. An
// empty result means the window is on all activities.
func (c *Connection) GetWindowActivities(windowID xproto.Window) []string {
	value, err := xprop.PropValStr(xprop.GetProperty(c.XUtil, windowID, "_KDE_NET_WM_ACTIVITIES"))
	if err != nil {
		return nil
	}

	var activities []string
	for _, a := range strings.Split(value, ",") {
		a = strings.TrimSpace(a)
		// KWin writes the nil uuid for "all activities"
		if a == "" || a == "00000000-0000-0000-0000-000000000000" {
			continue
		}
		activities = append(activities, a)
	}
	return activities
}
