// Package tiletree holds per-output tile trees in a shared arena.
//
// A tree partitions an output into rectangles. Containers carry an
// orientation and two or more children laid out along it; leaves are the
// targets windows get assigned to. Tiles are addressed by TileID handles that
// stay valid until the tile is removed, and are unique across every tree of
// the same Arena.
//
// Geometry is stored as fractions of the tree bounds so a tree follows its
// output when the usable area changes.
package tiletree

import (
	"errors"
	"fmt"
	"math"

	"github.com/1broseidon/autotile/internal/platform"
)

// TileID is a handle to a tile inside an Arena.
type TileID int

// NoTile is the zero handle: no tile, or "untiled".
const NoTile TileID = -1

var (
	ErrUnknownTile  = errors.New("unknown tile")
	ErrNotLeaf      = errors.New("tile is not a leaf")
	ErrNotRemovable = errors.New("tile is not removable")
)

// Observer is told about structural changes so window assignments can follow
// their tiles.
type Observer interface {
	// TileReplaced reports that the windows on old now belong on new.
	TileReplaced(old, new TileID)
	// TileRemoved reports that a leaf is gone.
	TileRemoved(id TileID)
	// TilesChanged reports that leaf geometry on an output changed.
	TilesChanged(output string)
}

type fraction struct {
	x, y, w, h float64
}

type node struct {
	tree        *Tree
	parent      TileID
	children    []TileID
	orientation Orientation
	rel         fraction
	offset      platform.Point
}

// Arena stores the tiles of every tree.
type Arena struct {
	nodes []*node
}

// NewArena returns an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewTree creates a tree whose root covers bounds. padding is subtracted from
// every edge of a leaf when computing window geometry.
func (a *Arena) NewTree(output string, bounds platform.Rect, padding int, obs Observer) *Tree {
	t := &Tree{
		arena:    a,
		output:   output,
		bounds:   bounds,
		padding:  padding,
		observer: obs,
	}
	t.root = a.alloc(&node{tree: t, parent: NoTile, rel: fraction{0, 0, 1, 1}})
	return t
}

// Release drops every tile of t. Handles into it become unknown.
func (a *Arena) Release(t *Tree) {
	for i, n := range a.nodes {
		if n != nil && n.tree == t {
			a.nodes[i] = nil
		}
	}
}

// Output returns the output name of the tree that owns id.
func (a *Arena) Output(id TileID) (string, bool) {
	n, err := a.get(id)
	if err != nil {
		return "", false
	}
	return n.tree.output, true
}

func (a *Arena) alloc(n *node) TileID {
	a.nodes = append(a.nodes, n)
	return TileID(len(a.nodes) - 1)
}

func (a *Arena) get(id TileID) (*node, error) {
	if id < 0 || int(id) >= len(a.nodes) || a.nodes[id] == nil {
		return nil, fmt.Errorf("%w: %d", ErrUnknownTile, id)
	}
	return a.nodes[id], nil
}

// Tree is the tile tree of one output.
type Tree struct {
	arena    *Arena
	output   string
	root     TileID
	bounds   platform.Rect
	padding  int
	observer Observer
}

// Output returns the output name.
func (t *Tree) Output() string { return t.output }

// Root returns the root tile. It always exists.
func (t *Tree) Root() TileID { return t.root }

// Bounds returns the area the root covers.
func (t *Tree) Bounds() platform.Rect { return t.bounds }

// Padding returns the per-edge gap applied to window geometry.
func (t *Tree) Padding() int { return t.padding }

// SetBounds resizes the whole tree, keeping proportions.
func (t *Tree) SetBounds(r platform.Rect) {
	if r == t.bounds {
		return
	}
	t.bounds = r
	t.changed()
}

// SetPadding changes the gap applied to window geometry.
func (t *Tree) SetPadding(p int) {
	if p == t.padding {
		return
	}
	t.padding = p
	t.changed()
}

// Contains reports whether id is a live tile of this tree.
func (t *Tree) Contains(id TileID) bool {
	n, err := t.arena.get(id)
	return err == nil && n.tree == t
}

// Parent returns the parent of id, NoTile for the root.
func (t *Tree) Parent(id TileID) TileID {
	n, err := t.node(id)
	if err != nil {
		return NoTile
	}
	return n.parent
}

// Children returns a copy of the ordered children of id.
func (t *Tree) Children(id TileID) []TileID {
	n, err := t.node(id)
	if err != nil {
		return nil
	}
	return append([]TileID(nil), n.children...)
}

// IsLeaf reports whether id has no children.
func (t *Tree) IsLeaf(id TileID) bool {
	n, err := t.node(id)
	return err == nil && len(n.children) == 0
}

// Orientation returns how the children of id are laid out.
func (t *Tree) Orientation(id TileID) Orientation {
	n, err := t.node(id)
	if err != nil {
		return None
	}
	return n.orientation
}

// Leaves returns the leaves in tree order. An unsplit tree returns its root.
func (t *Tree) Leaves() []TileID {
	var out []TileID
	var walk func(id TileID)
	walk = func(id TileID) {
		n := t.arena.nodes[id]
		if len(n.children) == 0 {
			out = append(out, id)
			return
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(t.root)
	return out
}

// LeafCount returns len(Leaves()).
func (t *Tree) LeafCount() int {
	return len(t.Leaves())
}

// Geometry returns the absolute rectangle of id.
func (t *Tree) Geometry(id TileID) platform.Rect {
	n, err := t.node(id)
	if err != nil {
		return platform.Rect{}
	}
	b := t.bounds
	x1 := b.X + int(math.Round(n.rel.x*float64(b.Width)))
	y1 := b.Y + int(math.Round(n.rel.y*float64(b.Height)))
	x2 := b.X + int(math.Round((n.rel.x+n.rel.w)*float64(b.Width)))
	y2 := b.Y + int(math.Round((n.rel.y+n.rel.h)*float64(b.Height)))
	return platform.Rect{
		X:      x1 + n.offset.X,
		Y:      y1 + n.offset.Y,
		Width:  x2 - x1,
		Height: y2 - y1,
	}
}

// WindowGeometry returns the geometry a window on id should get.
func (t *Tree) WindowGeometry(id TileID) platform.Rect {
	p := t.padding
	return t.Geometry(id).Inset(p, p, p, p)
}

// Extent returns the size of id along o: width for Horizontal, height for Vertical.
func (t *Tree) Extent(id TileID, o Orientation) int {
	g := t.Geometry(id)
	if o == Vertical {
		return g.Height
	}
	return g.Width
}

// BestTileForPosition returns the first leaf in tree order containing p, or NoTile.
func (t *Tree) BestTileForPosition(p platform.Point) TileID {
	for _, leaf := range t.Leaves() {
		if t.Geometry(leaf).Contains(p) {
			return leaf
		}
	}
	return NoTile
}

// NearestLeaf returns the leaf closest to p. Ties go to the first in tree order.
func (t *Tree) NearestLeaf(p platform.Point) TileID {
	best := NoTile
	bestDist := math.MaxInt
	for _, leaf := range t.Leaves() {
		if d := distance(t.Geometry(leaf), p); d < bestDist {
			best, bestDist = leaf, d
		}
	}
	return best
}

// Split divides leaf id along o and returns the resulting pair, the half that
// keeps the original windows first. When the parent is already laid out along
// o the new tile is inserted as a sibling; otherwise id becomes a container
// with two new leaves and its windows move to the first one.
func (t *Tree) Split(id TileID, o Orientation) ([2]TileID, error) {
	n, err := t.node(id)
	if err != nil {
		return [2]TileID{}, err
	}
	if len(n.children) > 0 {
		return [2]TileID{}, fmt.Errorf("split %d: %w", id, ErrNotLeaf)
	}
	if o == None {
		return [2]TileID{}, fmt.Errorf("split %d: orientation is required", id)
	}

	first, second := halve(n.rel, o)

	if n.parent != NoTile {
		p := t.arena.nodes[n.parent]
		if p.orientation == o {
			n.rel = first
			sibling := t.arena.alloc(&node{tree: t, parent: n.parent, rel: second})
			p.children = insertAfter(p.children, id, sibling)
			t.changed()
			return [2]TileID{id, sibling}, nil
		}
	}

	c1 := t.arena.alloc(&node{tree: t, parent: id, rel: first})
	c2 := t.arena.alloc(&node{tree: t, parent: id, rel: second})
	n.children = []TileID{c1, c2}
	n.orientation = o
	n.offset = platform.Point{}
	if t.observer != nil {
		t.observer.TileReplaced(id, c1)
	}
	t.changed()
	return [2]TileID{c1, c2}, nil
}

// Removable reports whether id is a leaf other than the root.
func (t *Tree) Removable(id TileID) bool {
	n, err := t.node(id)
	if err != nil || id == t.root || len(n.children) > 0 {
		return false
	}
	return len(t.arena.nodes[n.parent].children) > 1
}

// Remove deletes a removable leaf. Its previous sibling (or next, for the
// first child) takes over the space. A container left with one child
// collapses into it.
func (t *Tree) Remove(id TileID) error {
	if _, err := t.node(id); err != nil {
		return err
	}
	if !t.Removable(id) {
		return fmt.Errorf("remove %d: %w", id, ErrNotRemovable)
	}

	n := t.arena.nodes[id]
	parentID := n.parent
	p := t.arena.nodes[parentID]

	idx := indexOf(p.children, id)
	neighbor := p.children[idx+1]
	if idx > 0 {
		neighbor = p.children[idx-1]
	}
	t.rescale(neighbor, union(t.arena.nodes[neighbor].rel, n.rel))

	p.children = append(p.children[:idx:idx], p.children[idx+1:]...)
	t.arena.nodes[id] = nil
	if t.observer != nil {
		t.observer.TileRemoved(id)
	}

	if len(p.children) == 1 {
		t.collapse(parentID)
	}
	t.changed()
	return nil
}

// MoveByPixels shifts the geometry of id by (dx, dy).
func (t *Tree) MoveByPixels(id TileID, dx, dy int) error {
	n, err := t.node(id)
	if err != nil {
		return err
	}
	n.offset.X += dx
	n.offset.Y += dy
	t.changed()
	return nil
}

func (t *Tree) node(id TileID) (*node, error) {
	n, err := t.arena.get(id)
	if err != nil {
		return nil, err
	}
	if n.tree != t {
		return nil, fmt.Errorf("%w: %d is not on output %s", ErrUnknownTile, id, t.output)
	}
	return n, nil
}

func (t *Tree) collapse(parentID TileID) {
	p := t.arena.nodes[parentID]
	onlyID := p.children[0]
	only := t.arena.nodes[onlyID]

	if len(only.children) == 0 {
		p.children = nil
		p.orientation = None
		t.arena.nodes[onlyID] = nil
		if t.observer != nil {
			t.observer.TileReplaced(onlyID, parentID)
		}
		return
	}

	p.children = only.children
	p.orientation = only.orientation
	for _, c := range p.children {
		t.arena.nodes[c].parent = parentID
	}
	t.arena.nodes[onlyID] = nil
}

// rescale maps id and its subtree from their current rectangle onto to.
func (t *Tree) rescale(id TileID, to fraction) {
	from := t.arena.nodes[id].rel
	var walk func(id TileID)
	walk = func(id TileID) {
		n := t.arena.nodes[id]
		n.rel = fraction{
			x: to.x + (n.rel.x-from.x)*to.w/from.w,
			y: to.y + (n.rel.y-from.y)*to.h/from.h,
			w: n.rel.w * to.w / from.w,
			h: n.rel.h * to.h / from.h,
		}
		for _, c := range n.children {
			walk(c)
		}
	}
	walk(id)
}

func (t *Tree) changed() {
	if t.observer != nil {
		t.observer.TilesChanged(t.output)
	}
}

func halve(r fraction, o Orientation) (fraction, fraction) {
	if o == Vertical {
		h := r.h / 2
		return fraction{r.x, r.y, r.w, h}, fraction{r.x, r.y + h, r.w, r.h - h}
	}
	w := r.w / 2
	return fraction{r.x, r.y, w, r.h}, fraction{r.x + w, r.y, r.w - w, r.h}
}

func union(a, b fraction) fraction {
	x1 := math.Min(a.x, b.x)
	y1 := math.Min(a.y, b.y)
	x2 := math.Max(a.x+a.w, b.x+b.w)
	y2 := math.Max(a.y+a.h, b.y+b.h)
	return fraction{x1, y1, x2 - x1, y2 - y1}
}

func insertAfter(ids []TileID, after, id TileID) []TileID {
	idx := indexOf(ids, after)
	out := make([]TileID, 0, len(ids)+1)
	out = append(out, ids[:idx+1]...)
	out = append(out, id)
	return append(out, ids[idx+1:]...)
}

func indexOf(ids []TileID, id TileID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

func distance(r platform.Rect, p platform.Point) int {
	dx := 0
	if p.X < r.X {
		dx = r.X - p.X
	} else if p.X >= r.X+r.Width {
		dx = p.X - (r.X + r.Width - 1)
	}
	dy := 0
	if p.Y < r.Y {
		dy = r.Y - p.Y
	} else if p.Y >= r.Y+r.Height {
		dy = p.Y - (r.Y + r.Height - 1)
	}
	return dx*dx + dy*dy
}
