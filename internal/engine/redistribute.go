package engine

import (
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// Redistribute tiles untiled windows, relieves crowded leaves by moving one
// occupant per leaf to a free leaf, and re-evaluates solo state on every
// output. trigger is the window that caused the pass, or NoWindow; it is
// never the one moved away.
func (e *Engine) Redistribute(trigger platform.WindowID, affected tiletree.TileID) {
	if !e.config.RearrangeWindows {
		e.updateAllSolo()
		return
	}
	v, ok := e.snapshot()
	if !ok {
		return
	}

	justPlaced := make(map[platform.WindowID]tiletree.TileID)
	for _, w := range v.windows {
		if w.ID == trigger || !e.inScope(v, w) || e.host.TileOf(w.ID) != tiletree.NoTile {
			continue
		}
		if e.aboutToMaximize(v, w) {
			continue
		}
		if tile := e.place(v, w, nil); tile != tiletree.NoTile && e.host.TileOf(w.ID) == tile {
			justPlaced[w.ID] = tile
		}
	}

	triggerOutput := ""
	if w, found := v.find(trigger); found {
		triggerOutput = w.Output
	}
	outputs := e.orderedOutputs(triggerOutput)

	// Leaves taken by windows placed above already count as occupied.
	free := make(map[string][]tiletree.TileID)
	var pool []tiletree.TileID
	for _, name := range outputs {
		tree, ok := e.host.Tree(name)
		if !ok {
			e.logger.Warn("no tile tree for output", "output", name)
			continue
		}
		for _, leaf := range e.emptyLeaves(v, tree) {
			free[name] = append(free[name], leaf)
			pool = append(pool, leaf)
		}
	}

	for _, name := range outputs {
		tree, ok := e.host.Tree(name)
		if !ok {
			continue
		}
		for _, leaf := range tree.Leaves() {
			occupants := e.occupants(v, leaf)
			if len(occupants) <= 1 {
				continue
			}

			if len(free[name]) > 0 {
				if mover, ok := pickMover(occupants, trigger, justPlaced, leaf); ok {
					target := free[name][0]
					free[name] = free[name][1:]
					pool = without(pool, target)
					e.host.SetTile(mover.ID, target)
					e.logger.Debug("moved window to free tile", "window", mover.ID, "from", leaf, "to", target, "output", name)
					continue
				}
			}

			if e.config.RearrangeBetweenOutputs && !e.isMoving() {
				if target, targetOutput, ok := e.poolLeaf(pool, name); ok {
					if mover, ok := lastExcept(occupants, trigger); ok {
						pool = without(pool, target)
						free[targetOutput] = without(free[targetOutput], target)
						e.host.SetTile(mover.ID, target)
						e.forceRedraw(target)
						e.logger.Debug("moved window to another output", "window", mover.ID, "from", name, "to", targetOutput)
						continue
					}
				}
			}

			e.logger.Info("tile stays crowded, no free tile", "output", name, "tile", leaf, "windows", len(occupants))
		}
	}

	e.updateAllSolo()
	if affected != tiletree.NoTile {
		e.logger.Debug("redistribution finished", "trigger", trigger, "tile", affected)
	}
}

// poolLeaf returns the first pooled leaf that is not on output.
func (e *Engine) poolLeaf(pool []tiletree.TileID, output string) (tiletree.TileID, string, bool) {
	for _, tile := range pool {
		tree, ok := e.treeOf(tile)
		if ok && tree.Output() != output {
			return tile, tree.Output(), true
		}
	}
	return tiletree.NoTile, "", false
}

// pickMover chooses which occupant of a crowded leaf moves: a window placed
// on this leaf during the current pass first, otherwise the last occupant.
// The trigger never moves.
func pickMover(occupants []platform.Window, trigger platform.WindowID, justPlaced map[platform.WindowID]tiletree.TileID, leaf tiletree.TileID) (platform.Window, bool) {
	for i := len(occupants) - 1; i >= 0; i-- {
		w := occupants[i]
		if tile, ok := justPlaced[w.ID]; ok && tile == leaf && w.ID != trigger {
			return w, true
		}
	}
	return lastExcept(occupants, trigger)
}

func lastExcept(windows []platform.Window, id platform.WindowID) (platform.Window, bool) {
	for i := len(windows) - 1; i >= 0; i-- {
		if windows[i].ID != id {
			return windows[i], true
		}
	}
	return platform.Window{}, false
}

func without(tiles []tiletree.TileID, tile tiletree.TileID) []tiletree.TileID {
	out := tiles[:0:0]
	for _, t := range tiles {
		if t != tile {
			out = append(out, t)
		}
	}
	return out
}
