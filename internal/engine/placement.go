package engine

import (
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// Place assigns w to the leaf under ref, or under its centre when ref is nil,
// and returns that leaf. It returns NoTile when the window was left untiled.
func (e *Engine) Place(id platform.WindowID, ref *platform.Point) tiletree.TileID {
	v, ok := e.snapshot()
	if !ok {
		return tiletree.NoTile
	}
	w, found := v.find(id)
	if !found {
		return tiletree.NoTile
	}
	return e.place(v, w, ref)
}

func (e *Engine) place(v *view, w platform.Window, ref *platform.Point) tiletree.TileID {
	point := w.Bounds.Center()
	output := w.Output
	if ref != nil {
		point = *ref
		if name := platform.OutputAt(e.host.Outputs(), point); name != "" {
			output = name
		}
	}

	tree, ok := e.host.Tree(output)
	if !ok {
		e.logger.Warn("no tile tree for output", "output", output, "window", w.ID)
		return tiletree.NoTile
	}

	leaf := tree.BestTileForPosition(point)
	if leaf == tiletree.NoTile {
		if e.config.MaximizeWhenNoLayout {
			if area, ok := e.maximizeArea(output, v.scope.Desktop); ok {
				e.logger.Debug("no tile under window, maximizing", "window", w.ID, "output", output)
				e.host.ClearTile(w.ID)
				if err := e.host.SetGeometry(w.ID, area); err != nil {
					e.logger.Warn("failed to maximize window", "window", w.ID, "error", err)
				}
			}
			return tree.Root()
		}
		if e.config.RootTileFallback {
			leaf = tree.NearestLeaf(point)
		}
		if leaf == tiletree.NoTile {
			return tiletree.NoTile
		}
	}

	if e.overflowing(v, tree, leaf, w.ID) {
		e.logger.Info("tile limit reached, window left untiled", "window", w.ID, "output", output, "max_tiles", e.config.MaxTiles)
		return tiletree.NoTile
	}

	// Reassigning the same tile is dropped by the host; clear first so the
	// geometry is pushed again.
	if e.host.TileOf(w.ID) == leaf {
		e.host.ClearTile(w.ID)
	}
	e.host.SetTile(w.ID, leaf)
	e.logger.Debug("window placed", "window", w.ID, "tile", leaf, "output", output)
	return leaf
}

// overflowing reports whether placing id on leaf would crowd a tree that
// is already at max_tiles with no free leaf left.
func (e *Engine) overflowing(v *view, tree *tiletree.Tree, leaf tiletree.TileID, id platform.WindowID) bool {
	if e.config.MaxTiles <= 0 || tree.LeafCount() < e.config.MaxTiles {
		return false
	}
	if !occupiedByOther(e.occupants(v, leaf), id) {
		return false
	}
	for _, l := range tree.Leaves() {
		if !occupiedByOther(e.occupants(v, l), id) {
			return false
		}
	}
	return true
}

func occupiedByOther(windows []platform.Window, id platform.WindowID) bool {
	for _, w := range windows {
		if w.ID != id {
			return true
		}
	}
	return false
}
