package engine

import (
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// UpdateSolo maximizes the only window of an output, or restores tiling when
// there are several. Calling it again without changes moves nothing.
func (e *Engine) UpdateSolo(output string) State {
	v, ok := e.snapshot()
	if !ok {
		return e.states[output]
	}

	windows := e.windowsOn(v, output)
	state := Shared
	if len(windows) == 1 {
		state = Solo
		if e.config.SoloMaximize {
			e.maximize(v, windows[0])
		} else {
			e.unmaximize(v, windows[0])
		}
	} else {
		for _, w := range windows {
			e.unmaximize(v, w)
		}
	}

	if prev, seen := e.states[output]; !seen || prev != state {
		e.logger.Debug("output state", "output", output, "state", state, "windows", len(windows))
	}
	e.states[output] = state
	return state
}

func (e *Engine) updateAllSolo() {
	for _, name := range e.outputNames() {
		e.UpdateSolo(name)
	}
}

func (e *Engine) maximize(v *view, w platform.Window) {
	e.host.ClearTile(w.ID)
	area, ok := e.maximizeArea(w.Output, v.scope.Desktop)
	if !ok || w.Bounds == area {
		return
	}
	if err := e.host.SetGeometry(w.ID, area); err != nil {
		e.logger.Warn("failed to maximize window", "window", w.ID, "error", err)
	}
}

// unmaximize puts w back on a tile. A tile assignment alone does not reliably
// undo a maximized geometry, so the tile is nudged to make the host re-push it.
func (e *Engine) unmaximize(v *view, w platform.Window) {
	if e.host.TileOf(w.ID) == tiletree.NoTile {
		e.place(v, w, nil)
	}
	if tile := e.host.TileOf(w.ID); tile != tiletree.NoTile {
		e.forceRedraw(tile)
		return
	}
	if err := e.host.SetMaximized(w.ID, false); err != nil {
		e.logger.Debug("failed to unmaximize window", "window", w.ID, "error", err)
	}
}

func (e *Engine) forceRedraw(tile tiletree.TileID) {
	if !e.config.ForceRedraw {
		return
	}
	tree, ok := e.treeOf(tile)
	if !ok {
		return
	}
	for _, dx := range []int{1, -1} {
		if err := tree.MoveByPixels(tile, dx, 0); err != nil {
			e.logger.Debug("failed to nudge tile", "output", tree.Output(), "tile", tile, "error", err)
			return
		}
	}
}

// aboutToMaximize reports whether the next solo update will maximize w.
func (e *Engine) aboutToMaximize(v *view, w platform.Window) bool {
	return e.config.SoloMaximize && len(e.windowsOn(v, w.Output)) == 1
}
