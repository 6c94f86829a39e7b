package engine

import (
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// Host is everything the engine reads and mutates. tiling.Session is the
// production implementation.
type Host interface {
	Outputs() []platform.Output
	Tree(output string) (*tiletree.Tree, bool)
	Windows() ([]platform.Window, error)

	TileOf(id platform.WindowID) tiletree.TileID
	SetTile(id platform.WindowID, tile tiletree.TileID)
	ClearTile(id platform.WindowID)

	SetGeometry(id platform.WindowID, r platform.Rect) error
	SetMaximized(id platform.WindowID, maximized bool) error

	UsableArea(output string, desktop int) (platform.Rect, error)
	CurrentDesktop() (int, error)
	CurrentActivity() (string, error)
	ActiveWindow() (platform.WindowID, error)
}
