package engine

import (
	"github.com/1broseidon/autotile/internal/eligibility"
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// view is the window list and scope read at the start of one operation. It
// is never kept across a deferred action.
type view struct {
	windows []platform.Window
	scope   eligibility.Scope
}

func (v *view) find(id platform.WindowID) (platform.Window, bool) {
	for _, w := range v.windows {
		if w.ID == id {
			return w, true
		}
	}
	return platform.Window{}, false
}

func (e *Engine) snapshot() (*view, bool) {
	windows, err := e.host.Windows()
	if err != nil {
		e.logger.Error("failed to list windows", "error", err)
		return nil, false
	}
	desktop, err := e.host.CurrentDesktop()
	if err != nil {
		e.logger.Warn("failed to read current desktop", "error", err)
	}
	activity, err := e.host.CurrentActivity()
	if err != nil {
		e.logger.Debug("failed to read current activity", "error", err)
	}
	return &view{
		windows: windows,
		scope:   eligibility.Scope{Desktop: desktop, Activity: activity},
	}, true
}

func (e *Engine) explain(v *view, w platform.Window) (bool, string) {
	if ok, reason := e.filter.Explain(w); !ok {
		return false, reason
	}
	if w.Minimized {
		return false, "minimized"
	}
	if !v.scope.Contains(w) {
		return false, "not on the current desktop or activity"
	}
	return true, ""
}

// inScope reports whether w is eligible, not minimized, and visible.
func (e *Engine) inScope(v *view, w platform.Window) bool {
	ok, _ := e.explain(v, w)
	return ok
}

// windowsOn returns the in-scope windows on an output, in client-list order.
func (e *Engine) windowsOn(v *view, output string) []platform.Window {
	var out []platform.Window
	for _, w := range v.windows {
		if w.Output == output && e.inScope(v, w) {
			out = append(out, w)
		}
	}
	return out
}

// occupants returns the in-scope windows assigned to a tile.
func (e *Engine) occupants(v *view, tile tiletree.TileID) []platform.Window {
	var out []platform.Window
	for _, w := range v.windows {
		if e.host.TileOf(w.ID) == tile && e.inScope(v, w) {
			out = append(out, w)
		}
	}
	return out
}

func (e *Engine) emptyLeaves(v *view, tree *tiletree.Tree) []tiletree.TileID {
	var out []tiletree.TileID
	for _, leaf := range tree.Leaves() {
		if len(e.occupants(v, leaf)) == 0 {
			out = append(out, leaf)
		}
	}
	return out
}

// treeOf returns the tree holding tile.
func (e *Engine) treeOf(tile tiletree.TileID) (*tiletree.Tree, bool) {
	for _, o := range e.host.Outputs() {
		if tree, ok := e.host.Tree(o.Name); ok && tree.Contains(tile) {
			return tree, true
		}
	}
	return nil, false
}

func (e *Engine) splitOrientation() tiletree.Orientation {
	o, err := tiletree.ParseOrientation(e.config.SplitDirection)
	if err != nil || o == tiletree.None {
		return tiletree.Horizontal
	}
	return o
}

// maximizeArea is the usable area of an output, inset by the screen padding
// when padding_aware_maximize is on.
func (e *Engine) maximizeArea(output string, desktop int) (platform.Rect, bool) {
	area, err := e.host.UsableArea(output, desktop)
	if err != nil {
		e.logger.Warn("failed to read usable area", "output", output, "error", err)
		return platform.Rect{}, false
	}
	if e.config.PaddingAwareMaximize {
		p := e.config.ScreenPadding
		area = area.Inset(p.Top, p.Bottom, p.Left, p.Right)
	}
	return area, true
}
