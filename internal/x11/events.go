package x11

import (
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil"
	"github.com/BurntSushi/xgbutil/xevent"
	"github.com/BurntSushi/xgbutil/xprop"
	"github.com/BurntSushi/xgbutil/xwindow"
)

// WatchRoot reports every property change on the root window by atom name.
// _NET_CLIENT_LIST and _NET_CURRENT_DESKTOP are the ones that matter.
func (c *Connection) WatchRoot(onProperty func(atom string)) error {
	if err := xwindow.New(c.XUtil, c.Root).Listen(xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
		name, err := xprop.AtomName(xu, ev.Atom)
		if err != nil {
			return
		}
		onProperty(name)
	}).Connect(c.XUtil, c.Root)
	return nil
}

// WatchWindow subscribes to structure and property events of a client window.
// Either callback may be nil.
func (c *Connection) WatchWindow(windowID xproto.Window, onConfigure func(), onProperty func(atom string)) error {
	if err := xwindow.New(c.XUtil, windowID).Listen(xproto.EventMaskStructureNotify | xproto.EventMaskPropertyChange); err != nil {
		return err
	}

	if onConfigure != nil {
		xevent.ConfigureNotifyFun(func(xu *xgbutil.XUtil, ev xevent.ConfigureNotifyEvent) {
			onConfigure()
		}).Connect(c.XUtil, windowID)
	}
	if onProperty != nil {
		xevent.PropertyNotifyFun(func(xu *xgbutil.XUtil, ev xevent.PropertyNotifyEvent) {
			name, err := xprop.AtomName(xu, ev.Atom)
			if err != nil {
				return
			}
			onProperty(name)
		}).Connect(c.XUtil, windowID)
	}
	return nil
}

// UnwatchWindow drops every callback attached to a window.
func (c *Connection) UnwatchWindow(windowID xproto.Window) {
	xevent.Detach(c.XUtil, windowID)
}
