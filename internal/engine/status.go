package engine

import (
	"sort"

	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// LeafStatus describes one leaf of an output's tree.
type LeafStatus struct {
	Tile     tiletree.TileID     `json:"tile"`
	Geometry platform.Rect       `json:"geometry"`
	Windows  []platform.WindowID `json:"windows"`
}

// OutputStatus describes the layout of one output.
type OutputStatus struct {
	Name    string              `json:"name"`
	State   string              `json:"state"`
	Bounds  platform.Rect       `json:"bounds"`
	Leaves  []LeafStatus        `json:"leaves"`
	Untiled []platform.WindowID `json:"untiled,omitempty"`
}

// Status reports every output's leaves, their occupants, and in-scope
// windows that are not on any tile.
func (e *Engine) Status() []OutputStatus {
	v, ok := e.snapshot()
	if !ok {
		return nil
	}

	var out []OutputStatus
	for _, name := range e.outputNames() {
		tree, ok := e.host.Tree(name)
		if !ok {
			continue
		}
		st := OutputStatus{
			Name:   name,
			State:  e.states[name].String(),
			Bounds: tree.Bounds(),
		}
		for _, leaf := range tree.Leaves() {
			ls := LeafStatus{Tile: leaf, Geometry: tree.Geometry(leaf)}
			for _, w := range e.occupants(v, leaf) {
				ls.Windows = append(ls.Windows, w.ID)
			}
			st.Leaves = append(st.Leaves, ls)
		}
		for _, w := range e.windowsOn(v, name) {
			if e.host.TileOf(w.ID) == tiletree.NoTile {
				st.Untiled = append(st.Untiled, w.ID)
			}
		}
		sort.Slice(st.Untiled, func(i, j int) bool { return st.Untiled[i] < st.Untiled[j] })
		out = append(out, st)
	}
	return out
}
