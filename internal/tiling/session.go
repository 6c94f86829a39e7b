// Package tiling owns the per-output tile trees and the window-to-tile
// assignments, and pushes tile geometry to windows through the platform
// backend.
package tiling

import (
	"log/slog"
	"sort"

	"github.com/1broseidon/autotile/internal/config"
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// Session is the host side of the layout engine. It is not safe for
// concurrent use; the daemon only touches it from its event loop.
type Session struct {
	backend  platform.Backend
	config   *config.Config
	arena    *tiletree.Arena
	trees    map[string]*tiletree.Tree
	outputs  []platform.Output
	assigned map[platform.WindowID]tiletree.TileID
	pushed   map[platform.WindowID]platform.Rect
	logger   *slog.Logger

	layoutModified func(output string)
}

var _ tiletree.Observer = (*Session)(nil)

// NewSession creates a session with no trees. Call SyncOutputs to build them.
func NewSession(backend platform.Backend, cfg *config.Config, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		backend:  backend,
		config:   cfg,
		arena:    tiletree.NewArena(),
		trees:    make(map[string]*tiletree.Tree),
		assigned: make(map[platform.WindowID]tiletree.TileID),
		pushed:   make(map[platform.WindowID]platform.Rect),
		logger:   logger,
	}
}

// SyncOutputs creates, resizes and drops trees to match the backend's outputs.
// It reports whether anything changed.
func (s *Session) SyncOutputs() (bool, error) {
	outputs, err := s.backend.Outputs()
	if err != nil {
		return false, err
	}
	desktop, err := s.backend.CurrentDesktop()
	if err != nil {
		desktop = 0
	}

	changed := len(outputs) != len(s.outputs)
	present := make(map[string]bool, len(outputs))
	for i, o := range outputs {
		present[o.Name] = true
		if !changed && s.outputs[i] != o {
			changed = true
		}

		bounds := s.treeBounds(o, desktop)
		if tree, ok := s.trees[o.Name]; ok {
			if tree.Bounds() != bounds {
				tree.SetBounds(bounds)
				s.notifyLayout(o.Name)
				changed = true
			}
			continue
		}
		s.trees[o.Name] = s.arena.NewTree(o.Name, bounds, s.config.TilePadding, s)
		s.logger.Info("output added", "output", o.Name, "bounds", bounds)
		changed = true
	}

	for name, tree := range s.trees {
		if present[name] {
			continue
		}
		for id, tile := range s.assigned {
			if tree.Contains(tile) {
				delete(s.assigned, id)
			}
		}
		s.arena.Release(tree)
		delete(s.trees, name)
		s.logger.Info("output removed", "output", name)
		changed = true
	}

	s.outputs = outputs
	return changed, nil
}

// OnLayoutModified registers f to be called when a tree's geometry changes
// outside of the engine's own splits and removals.
func (s *Session) OnLayoutModified(f func(output string)) {
	s.layoutModified = f
}

func (s *Session) notifyLayout(output string) {
	if s.layoutModified != nil {
		s.layoutModified(output)
	}
}

// UpdateConfig applies padding changes to every tree.
func (s *Session) UpdateConfig(cfg *config.Config) error {
	s.config = cfg
	for name, tree := range s.trees {
		if tree.Padding() == cfg.TilePadding {
			continue
		}
		tree.SetPadding(cfg.TilePadding)
		s.notifyLayout(name)
	}
	_, err := s.SyncOutputs()
	return err
}

func (s *Session) treeBounds(o platform.Output, desktop int) platform.Rect {
	area, err := s.backend.UsableArea(o.Name, desktop)
	if err != nil {
		s.logger.Debug("usable area unavailable, using output bounds", "output", o.Name, "error", err)
		area = o.Bounds
	}
	p := s.config.ScreenPadding
	return area.Inset(p.Top, p.Bottom, p.Left, p.Right)
}

// Outputs returns the outputs seen by the last SyncOutputs.
func (s *Session) Outputs() []platform.Output {
	return append([]platform.Output(nil), s.outputs...)
}

// Tree returns the tile tree of an output.
func (s *Session) Tree(output string) (*tiletree.Tree, bool) {
	tree, ok := s.trees[output]
	return tree, ok
}

func (s *Session) Windows() ([]platform.Window, error) {
	return s.backend.Windows()
}

// TileOf returns the tile a window is assigned to, or NoTile.
func (s *Session) TileOf(id platform.WindowID) tiletree.TileID {
	tile, ok := s.assigned[id]
	if !ok {
		return tiletree.NoTile
	}
	if _, live := s.arena.Output(tile); !live {
		delete(s.assigned, id)
		return tiletree.NoTile
	}
	return tile
}

// SetTile assigns a window and always pushes the tile geometry to it.
func (s *Session) SetTile(id platform.WindowID, tile tiletree.TileID) {
	if _, ok := s.arena.Output(tile); !ok {
		s.logger.Warn("assignment to unknown tile ignored", "window", id, "tile", tile)
		return
	}
	s.assigned[id] = tile
	s.apply(id, true)
}

func (s *Session) ClearTile(id platform.WindowID) {
	delete(s.assigned, id)
}

func (s *Session) SetGeometry(id platform.WindowID, r platform.Rect) error {
	if err := s.backend.MoveResize(id, r); err != nil {
		return err
	}
	s.pushed[id] = r
	return nil
}

func (s *Session) SetMaximized(id platform.WindowID, maximized bool) error {
	return s.backend.SetMaximized(id, maximized)
}

func (s *Session) UsableArea(output string, desktop int) (platform.Rect, error) {
	return s.backend.UsableArea(output, desktop)
}

func (s *Session) CurrentDesktop() (int, error) {
	return s.backend.CurrentDesktop()
}

func (s *Session) CurrentActivity() (string, error) {
	return s.backend.CurrentActivity()
}

func (s *Session) ActiveWindow() (platform.WindowID, error) {
	return s.backend.ActiveWindow()
}

// Pushed returns the last geometry the session sent to a window.
func (s *Session) Pushed(id platform.WindowID) (platform.Rect, bool) {
	r, ok := s.pushed[id]
	return r, ok
}

// Forget drops everything known about a window that no longer exists.
func (s *Session) Forget(id platform.WindowID) {
	delete(s.assigned, id)
	delete(s.pushed, id)
}

// TileReplaced moves windows from old to new.
func (s *Session) TileReplaced(old, new tiletree.TileID) {
	for id, tile := range s.assigned {
		if tile == old {
			s.assigned[id] = new
		}
	}
}

// TileRemoved leaves the windows of a removed tile untiled.
func (s *Session) TileRemoved(tile tiletree.TileID) {
	for id, t := range s.assigned {
		if t == tile {
			delete(s.assigned, id)
		}
	}
}

// TilesChanged re-pushes geometry to every window on the output whose tile moved.
func (s *Session) TilesChanged(output string) {
	tree, ok := s.trees[output]
	if !ok {
		// The tree is still being created.
		return
	}

	ids := make([]platform.WindowID, 0, len(s.assigned))
	for id, tile := range s.assigned {
		if tree.Contains(tile) {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		s.apply(id, false)
	}
}

func (s *Session) apply(id platform.WindowID, force bool) {
	tile := s.assigned[id]
	output, ok := s.arena.Output(tile)
	if !ok {
		return
	}
	r := s.trees[output].WindowGeometry(tile)
	if prev, ok := s.pushed[id]; ok && prev == r && !force {
		return
	}
	if err := s.SetGeometry(id, r); err != nil {
		s.logger.Debug("failed to move window onto tile", "window", id, "tile", tile, "error", err)
	}
}
