package engine

import (
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// Resize grows or shrinks an output's tree so its leaf count matches the
// number of in-scope windows on it, bounded by max_tiles. When exactly one
// leaf had to be created, the empty leaf is returned so the caller can
// place a window there; otherwise it returns NoTile.
func (e *Engine) Resize(output string) tiletree.TileID {
	if !e.config.RearrangeLayout {
		return tiletree.NoTile
	}
	tree, ok := e.host.Tree(output)
	if !ok {
		e.logger.Warn("no tile tree for output", "output", output)
		return tiletree.NoTile
	}
	v, ok := e.snapshot()
	if !ok {
		return tiletree.NoTile
	}

	windows := e.windowsOn(v, output)
	var tiled []platform.Window
	for _, w := range windows {
		if tile := e.host.TileOf(w.ID); tile != tiletree.NoTile && tree.Contains(tile) {
			tiled = append(tiled, w)
		}
	}

	demand := len(windows)
	supply := tree.LeafCount()
	delta := demand - supply
	if demand <= 1 && supply == 1 {
		delta = 0
	}
	if ceiling := e.config.MaxTiles; ceiling > 0 && delta > 0 && supply+delta > ceiling {
		delta = max(0, ceiling-supply)
	}

	e.logger.Debug("resize",
		"output", output,
		"demand", demand,
		"supply", supply,
		"tiled", len(tiled),
		"delta", delta)

	if demand == 1 && len(tiled) == 1 && e.host.TileOf(tiled[0].ID) != tree.Root() {
		e.collapseToRoot(tree, tiled[0].ID)
		return tiletree.NoTile
	}

	switch {
	case delta < 0:
		e.shrink(v, tree, -delta)
		return tiletree.NoTile
	case delta > 0:
		return e.grow(v, tree, supply+delta, delta == 1)
	default:
		return tiletree.NoTile
	}
}

// collapseToRoot removes every leaf but the root and puts id on it.
func (e *Engine) collapseToRoot(tree *tiletree.Tree, id platform.WindowID) {
	e.host.ClearTile(id)
	for !tree.IsLeaf(tree.Root()) {
		removed := false
		for _, leaf := range tree.Leaves() {
			if !tree.Removable(leaf) {
				continue
			}
			if err := tree.Remove(leaf); err != nil {
				e.logger.Error("failed to remove tile", "output", tree.Output(), "tile", leaf, "error", err)
				break
			}
			removed = true
			break
		}
		if !removed {
			break
		}
	}
	e.logger.Debug("collapsed tree to root", "output", tree.Output(), "window", id)
	e.host.SetTile(id, tree.Root())
}

// shrink removes up to n empty leaves, largest first.
func (e *Engine) shrink(v *view, tree *tiletree.Tree, n int) {
	o := e.splitOrientation()
	for i := 0; i < n; i++ {
		// An unsplit root is the last leaf and always stays.
		if tree.IsLeaf(tree.Root()) {
			return
		}
		empty := e.emptyLeaves(v, tree)
		if len(empty) == 0 {
			return
		}

		candidate := tiletree.NoTile
		for _, leaf := range empty {
			if !tree.Removable(leaf) {
				continue
			}
			if candidate == tiletree.NoTile || tree.Extent(leaf, o) > tree.Extent(candidate, o) {
				candidate = leaf
			}
		}
		if candidate == tiletree.NoTile {
			e.logger.Error("cannot remove tile", "output", tree.Output(), "tiles", empty)
			return
		}
		if err := tree.Remove(candidate); err != nil {
			e.logger.Error("failed to remove tile", "output", tree.Output(), "tile", candidate, "error", err)
			return
		}
		e.logger.Debug("removed empty tile", "output", tree.Output(), "tile", candidate)
	}
}

// grow splits the largest leaves until the tree has target leaves. With
// wantFresh set it returns the empty leaf of the last split.
func (e *Engine) grow(v *view, tree *tiletree.Tree, target int, wantFresh bool) tiletree.TileID {
	o := e.splitOrientation()
	var last [2]tiletree.TileID
	split := false

	for tree.LeafCount() < target {
		toSplit := tree.Root()
		for !tree.IsLeaf(toSplit) {
			toSplit = largest(tree, tree.Children(toSplit), o)
		}

		pair, err := tree.Split(toSplit, o)
		if err != nil {
			e.logger.Error("failed to split tile", "output", tree.Output(), "tile", toSplit, "error", err)
			return tiletree.NoTile
		}
		e.logger.Debug("split tile", "output", tree.Output(), "tile", toSplit, "into", pair)
		last = pair
		split = true
	}

	if !wantFresh || !split {
		return tiletree.NoTile
	}
	for _, tile := range last {
		if len(e.occupants(v, tile)) == 0 {
			return tile
		}
	}
	return tiletree.NoTile
}

// largest returns the tile with the greatest extent along o. Ties go to the
// first one.
func largest(tree *tiletree.Tree, tiles []tiletree.TileID, o tiletree.Orientation) tiletree.TileID {
	best := tiles[0]
	for _, t := range tiles[1:] {
		if tree.Extent(t, o) > tree.Extent(best, o) {
			best = t
		}
	}
	return best
}
