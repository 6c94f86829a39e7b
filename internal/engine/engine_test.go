package engine

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/1broseidon/autotile/internal/config"
	"github.com/1broseidon/autotile/internal/debounce"
	"github.com/1broseidon/autotile/internal/logging"
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/platform/platformtest"
	"github.com/1broseidon/autotile/internal/tiletree"
	"github.com/1broseidon/autotile/internal/tiling"
)

var (
	left  = platform.Output{Name: "DP-1", Bounds: platform.Rect{X: 0, Y: 0, Width: 1000, Height: 600}}
	right = platform.Output{Name: "HDMI-1", Bounds: platform.Rect{X: 1000, Y: 0, Width: 1000, Height: 600}}
)

type harness struct {
	t       *testing.T
	backend *platformtest.Backend
	session *tiling.Session
	clock   *debounce.ManualClock
	engine  *Engine
	cfg     *config.Config
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.TilePadding = 0
	return cfg
}

func newHarness(t *testing.T, cfg *config.Config, outputs ...platform.Output) *harness {
	t.Helper()
	return newHarnessWithLogger(t, cfg, logging.Discard(), outputs...)
}

func newHarnessWithLogger(t *testing.T, cfg *config.Config, logger *slog.Logger, outputs ...platform.Output) *harness {
	t.Helper()
	if len(outputs) == 0 {
		outputs = []platform.Output{left}
	}

	backend := platformtest.New(outputs...)
	session := tiling.NewSession(backend, cfg, logging.Discard())
	if _, err := session.SyncOutputs(); err != nil {
		t.Fatalf("SyncOutputs: %v", err)
	}
	clock := debounce.NewManualClock()
	e, err := New(session, cfg, Options{Logger: logger, Clock: clock})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return &harness{t: t, backend: backend, session: session, clock: clock, engine: e, cfg: cfg}
}

func (h *harness) add(id platform.WindowID, bounds platform.Rect) {
	h.backend.AddWindow(platform.Window{ID: id, Class: "org.example.app", Bounds: bounds})
	h.engine.WindowAdded(id)
}

func (h *harness) remove(id platform.WindowID) {
	w, _ := h.backend.Window(id)
	h.backend.RemoveWindow(id)
	h.engine.WindowRemoved(id, w.Output)
}

// settle fires every pending debounce.
func (h *harness) settle() {
	h.clock.Advance(5 * time.Second)
}

func (h *harness) bounds(id platform.WindowID) platform.Rect {
	h.t.Helper()
	w, ok := h.backend.Window(id)
	if !ok {
		h.t.Fatalf("window %d not found", id)
	}
	return w.Bounds
}

func (h *harness) tree(output string) *tiletree.Tree {
	h.t.Helper()
	tree, ok := h.session.Tree(output)
	if !ok {
		h.t.Fatalf("no tree for %s", output)
	}
	return tree
}

func rect(x, y, w, h int) platform.Rect {
	return platform.Rect{X: x, Y: y, Width: w, Height: h}
}

func TestSingleWindowIsMaximized(t *testing.T) {
	h := newHarness(t, testConfig())

	h.add(1, rect(100, 100, 300, 200))
	h.settle()

	if got, want := h.bounds(1), rect(0, 0, 1000, 600); got != want {
		t.Fatalf("bounds = %+v, want %+v", got, want)
	}
	if got := h.engine.State("DP-1"); got != Solo {
		t.Fatalf("state = %v, want solo", got)
	}
	if got := h.session.TileOf(1); got != tiletree.NoTile {
		t.Fatalf("solo window tile = %d, want untiled", got)
	}
}

func TestSecondWindowSplitsOutput(t *testing.T) {
	h := newHarness(t, testConfig())

	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	if got := h.tree("DP-1").LeafCount(); got != 2 {
		t.Fatalf("leaf count = %d, want 2", got)
	}
	if got, want := h.bounds(2), rect(0, 0, 500, 600); got != want {
		t.Fatalf("new window bounds = %+v, want %+v", got, want)
	}
	if got, want := h.bounds(1), rect(500, 0, 500, 600); got != want {
		t.Fatalf("first window bounds = %+v, want %+v", got, want)
	}
	if got := h.engine.State("DP-1"); got != Shared {
		t.Fatalf("state = %v, want shared", got)
	}
}

func TestRemovingWindowCollapsesToRoot(t *testing.T) {
	h := newHarness(t, testConfig())
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	h.remove(2)
	h.settle()

	tree := h.tree("DP-1")
	if got := tree.LeafCount(); got != 1 {
		t.Fatalf("leaf count = %d, want 1", got)
	}
	if !tree.IsLeaf(tree.Root()) {
		t.Fatalf("root is not a leaf after collapse")
	}
	if got, want := h.bounds(1), rect(0, 0, 1000, 600); got != want {
		t.Fatalf("bounds = %+v, want %+v", got, want)
	}
	if got := h.engine.State("DP-1"); got != Solo {
		t.Fatalf("state = %v, want solo", got)
	}
}

func TestMinimizeDetachesAndRestoreRetiles(t *testing.T) {
	h := newHarness(t, testConfig())
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	h.backend.SetMinimized(1, true)
	h.engine.MinimizedChanged(1, true)
	h.settle()

	if got := h.tree("DP-1").LeafCount(); got != 1 {
		t.Fatalf("leaf count after minimize = %d, want 1", got)
	}
	if got, want := h.bounds(2), rect(0, 0, 1000, 600); got != want {
		t.Fatalf("remaining window bounds = %+v, want %+v", got, want)
	}

	h.backend.SetMinimized(1, false)
	h.engine.MinimizedChanged(1, false)
	h.settle()

	if got := h.tree("DP-1").LeafCount(); got != 2 {
		t.Fatalf("leaf count after restore = %d, want 2", got)
	}
	if h.session.TileOf(1) == h.session.TileOf(2) {
		t.Fatalf("windows share tile %d after restore", h.session.TileOf(1))
	}
}

func TestDragOntoOccupiedTileSwapsOccupant(t *testing.T) {
	h := newHarness(t, testConfig())
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	// Window 2 sits left, window 1 right. Drag 2 to the right half.
	h.engine.MoveStepped(2)
	h.backend.SetBounds(2, rect(550, 50, 400, 400))
	h.engine.MoveFinished(2, platform.Point{X: 800, Y: 300})
	h.settle()

	if got, want := h.bounds(2), rect(500, 0, 500, 600); got != want {
		t.Fatalf("dragged window bounds = %+v, want %+v", got, want)
	}
	if got, want := h.bounds(1), rect(0, 0, 500, 600); got != want {
		t.Fatalf("displaced window bounds = %+v, want %+v", got, want)
	}
}

func TestMaxTilesLeavesExtraWindowUntiled(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTiles = 2
	h := newHarness(t, cfg)
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	h.add(3, rect(100, 100, 200, 200))
	h.settle()

	if got := h.tree("DP-1").LeafCount(); got != 2 {
		t.Fatalf("leaf count = %d, want 2", got)
	}
	if got := h.session.TileOf(3); got != tiletree.NoTile {
		t.Fatalf("overflow window tile = %d, want untiled", got)
	}
	if got, want := h.bounds(3), rect(100, 100, 200, 200); got != want {
		t.Fatalf("overflow window moved to %+v, want %+v", got, want)
	}

	status := h.engine.Status()
	if len(status) != 1 || len(status[0].Untiled) != 1 || status[0].Untiled[0] != 3 {
		t.Fatalf("status untiled = %+v, want [3]", status)
	}
}

func TestIneligibleWindowsAreIgnored(t *testing.T) {
	h := newHarness(t, testConfig())

	h.backend.AddWindow(platform.Window{ID: 7, Type: platform.WindowTypeDialog, Bounds: rect(10, 10, 100, 100)})
	h.engine.WindowAdded(7)
	h.backend.AddWindow(platform.Window{ID: 8, Desktop: 3, Bounds: rect(10, 10, 100, 100)})
	h.engine.WindowAdded(8)
	h.backend.AddWindow(platform.Window{ID: 9, Class: "org.kde.spectacle", Bounds: rect(10, 10, 100, 100)})
	h.engine.WindowAdded(9)
	h.settle()

	if len(h.backend.Moves) != 0 {
		t.Fatalf("ineligible windows were moved: %+v", h.backend.Moves)
	}
	for _, id := range []platform.WindowID{7, 8, 9} {
		if tile := h.session.TileOf(id); tile != tiletree.NoTile {
			t.Fatalf("window %d got tile %d", id, tile)
		}
	}
}

func TestBurstOfWindowsConverges(t *testing.T) {
	h := newHarness(t, testConfig())

	for id := platform.WindowID(1); id <= 5; id++ {
		h.add(id, rect(100, 100, 200, 200))
	}
	h.settle()

	tree := h.tree("DP-1")
	if got := tree.LeafCount(); got != 5 {
		t.Fatalf("leaf count = %d, want 5", got)
	}
	seen := make(map[tiletree.TileID]platform.WindowID)
	for id := platform.WindowID(1); id <= 5; id++ {
		tile := h.session.TileOf(id)
		if tile == tiletree.NoTile {
			t.Fatalf("window %d is untiled", id)
		}
		if other, dup := seen[tile]; dup {
			t.Fatalf("windows %d and %d share tile %d", other, id, tile)
		}
		seen[tile] = id
		if got, want := h.bounds(id), tree.WindowGeometry(tile); got != want {
			t.Fatalf("window %d bounds = %+v, want tile geometry %+v", id, got, want)
		}
	}
	if h.clock.Pending() != 0 {
		t.Fatalf("pending timers after settle = %d, want 0", h.clock.Pending())
	}
}

func TestSoloIsIdempotent(t *testing.T) {
	h := newHarness(t, testConfig())
	h.add(1, rect(100, 100, 300, 200))
	h.settle()

	h.backend.ResetMoves()
	for i := 0; i < 3; i++ {
		if got := h.engine.UpdateSolo("DP-1"); got != Solo {
			t.Fatalf("UpdateSolo = %v, want solo", got)
		}
	}
	if len(h.backend.Moves) != 0 {
		t.Fatalf("repeated UpdateSolo moved windows: %+v", h.backend.Moves)
	}
}

func TestSoloMaximizeRespectsScreenPadding(t *testing.T) {
	cfg := testConfig()
	cfg.ScreenPadding = config.Margins{Top: 10, Bottom: 20, Left: 30, Right: 40}
	h := newHarness(t, cfg)

	h.add(1, rect(100, 100, 300, 200))
	h.settle()

	if got, want := h.bounds(1), rect(30, 10, 930, 570); got != want {
		t.Fatalf("bounds = %+v, want %+v", got, want)
	}

	cfg.PaddingAwareMaximize = false
	h.engine.UpdateSolo("DP-1")
	if got, want := h.bounds(1), rect(0, 0, 1000, 600); got != want {
		t.Fatalf("bounds without padding awareness = %+v, want %+v", got, want)
	}
}

func TestRootSurvivesLastWindow(t *testing.T) {
	h := newHarness(t, testConfig())
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	h.remove(1)
	h.remove(2)
	h.settle()

	tree := h.tree("DP-1")
	if got := tree.LeafCount(); got != 1 {
		t.Fatalf("leaf count = %d, want 1", got)
	}
	if !tree.IsLeaf(tree.Root()) {
		t.Fatalf("root is not a leaf")
	}
	if got := h.engine.State("DP-1"); got != Shared {
		t.Fatalf("state of empty output = %v, want shared", got)
	}
}

func TestClosingLastWindowsTogetherLogsNoError(t *testing.T) {
	var out bytes.Buffer
	h := newHarnessWithLogger(t, testConfig(), logging.New(&out, "error"))
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	// Both windows are gone before either removal is handled.
	h.backend.RemoveWindow(1)
	h.backend.RemoveWindow(2)
	h.engine.WindowRemoved(1, "DP-1")
	h.engine.WindowRemoved(2, "DP-1")
	h.settle()

	tree := h.tree("DP-1")
	if !tree.IsLeaf(tree.Root()) {
		t.Fatalf("root is not a leaf, leaves = %d", tree.LeafCount())
	}
	if out.Len() != 0 {
		t.Fatalf("unexpected error output:\n%s", out.String())
	}
}

func TestRetileTilesUnmanagedWindows(t *testing.T) {
	h := newHarness(t, testConfig())
	h.backend.AddWindow(platform.Window{ID: 1, Bounds: rect(0, 0, 400, 600)})
	h.backend.AddWindow(platform.Window{ID: 2, Bounds: rect(600, 0, 400, 600)})

	h.engine.Retile()

	if got, want := h.bounds(1), rect(0, 0, 500, 600); got != want {
		t.Fatalf("window 1 bounds = %+v, want %+v", got, want)
	}
	if got, want := h.bounds(2), rect(500, 0, 500, 600); got != want {
		t.Fatalf("window 2 bounds = %+v, want %+v", got, want)
	}
}

func TestCrowdedTileMovesToAnotherOutput(t *testing.T) {
	cfg := testConfig()
	cfg.RearrangeLayout = false
	cfg.SoloMaximize = false
	h := newHarness(t, cfg, left, right)

	h.add(1, rect(100, 100, 800, 400))
	h.settle()
	h.add(2, rect(100, 100, 200, 200))
	h.settle()

	if got, want := h.bounds(1), rect(1000, 0, 1000, 600); got != want {
		t.Fatalf("moved window bounds = %+v, want %+v", got, want)
	}
	if got, want := h.bounds(2), rect(0, 0, 1000, 600); got != want {
		t.Fatalf("trigger window bounds = %+v, want %+v", got, want)
	}
}

func TestCrowdedTileStaysWithoutCrossOutputMoves(t *testing.T) {
	cfg := testConfig()
	cfg.RearrangeLayout = false
	cfg.SoloMaximize = false
	cfg.RearrangeBetweenOutputs = false
	h := newHarness(t, cfg, left, right)

	h.add(1, rect(100, 100, 800, 400))
	h.settle()
	h.add(2, rect(100, 100, 200, 200))
	h.settle()

	root := h.tree("DP-1").Root()
	if h.session.TileOf(1) != root || h.session.TileOf(2) != root {
		t.Fatalf("tiles = %d, %d, want both on %d", h.session.TileOf(1), h.session.TileOf(2), root)
	}
}

func TestCrossOutputMoveWaitsForDrag(t *testing.T) {
	cfg := testConfig()
	cfg.RearrangeLayout = false
	cfg.SoloMaximize = false
	h := newHarness(t, cfg, left, right)

	h.add(1, rect(100, 100, 800, 400))
	h.settle()
	// Another window is still being dragged.
	h.engine.MoveStepped(9)
	h.add(2, rect(100, 100, 200, 200))
	h.settle()

	root := h.tree("DP-1").Root()
	if h.session.TileOf(1) != root || h.session.TileOf(2) != root {
		t.Fatalf("tiles = %d, %d, want both on %d", h.session.TileOf(1), h.session.TileOf(2), root)
	}
	if got, want := h.bounds(1), rect(0, 0, 1000, 600); got != want {
		t.Fatalf("window 1 bounds = %+v, want %+v", got, want)
	}
}

func TestSweptWindowLeavesCrowdedTile(t *testing.T) {
	h := newHarness(t, testConfig())
	// Ahead of the others in the client list, hidden until the sweep.
	h.backend.AddWindow(platform.Window{ID: 3, Class: "org.example.app", Minimized: true, Bounds: rect(100, 100, 200, 200)})
	h.add(1, rect(600, 100, 300, 200))
	h.settle()
	h.add(2, rect(100, 100, 300, 200))
	h.settle()

	tree := h.tree("DP-1")
	leaves := tree.Leaves()
	if len(leaves) != 2 || h.session.TileOf(2) != leaves[0] || h.session.TileOf(1) != leaves[1] {
		t.Fatalf("setup: leaves %v, window 1 on %d, window 2 on %d", leaves, h.session.TileOf(1), h.session.TileOf(2))
	}

	// Window 1 vanishes unnoticed and window 3 reappears over window 2.
	h.backend.RemoveWindow(1)
	h.backend.SetMinimized(3, false)
	h.engine.Redistribute(NoWindow, tiletree.NoTile)

	if got := h.session.TileOf(2); got != leaves[0] {
		t.Fatalf("existing occupant moved to %d, want %d", got, leaves[0])
	}
	if got := h.session.TileOf(3); got != leaves[1] {
		t.Fatalf("swept window on %d, want free tile %d", got, leaves[1])
	}
	if got, want := h.bounds(3), rect(500, 0, 500, 600); got != want {
		t.Fatalf("swept window bounds = %+v, want %+v", got, want)
	}
}

func TestWorkspaceChangedUpdatesActiveOutputFirst(t *testing.T) {
	h := newHarness(t, testConfig(), left, right)
	h.backend.AddWindow(platform.Window{ID: 1, Class: "org.example.app", Bounds: rect(1100, 100, 300, 200)})
	h.backend.AddWindow(platform.Window{ID: 2, Class: "org.example.app", Bounds: rect(100, 100, 300, 200)})
	h.backend.SetActive(1)

	h.engine.WorkspaceChanged()

	if got := h.engine.State("HDMI-1"); got != Solo {
		t.Fatalf("active output state before settle = %v, want solo", got)
	}
	if got, want := h.bounds(1), right.Bounds; got != want {
		t.Fatalf("active window bounds = %+v, want %+v", got, want)
	}
	if got, want := h.bounds(2), rect(100, 100, 300, 200); got != want {
		t.Fatalf("inactive output changed before settle: %+v, want %+v", got, want)
	}

	h.settle()
	if got, want := h.bounds(2), left.Bounds; got != want {
		t.Fatalf("inactive output window after settle = %+v, want %+v", got, want)
	}
}

func TestSoloPassDoesNotRetileMaximizedWindow(t *testing.T) {
	cfg := testConfig()
	cfg.TilePadding = 8
	h := newHarness(t, cfg)
	h.add(1, rect(100, 100, 300, 200))
	h.settle()

	h.backend.ResetMoves()
	h.engine.Retile()
	h.engine.Redistribute(NoWindow, tiletree.NoTile)

	if len(h.backend.Moves) != 0 {
		t.Fatalf("pass over a maximized window made moves: %+v", h.backend.Moves)
	}
	if got, want := h.bounds(1), left.Bounds; got != want {
		t.Fatalf("bounds = %+v, want %+v", got, want)
	}
}

func TestLayoutModifiedIsDebounced(t *testing.T) {
	h := newHarness(t, testConfig())
	h.backend.AddWindow(platform.Window{ID: 1, Bounds: rect(100, 100, 300, 200)})
	if tile := h.engine.Place(1, nil); tile != h.tree("DP-1").Root() {
		t.Fatalf("Place = %d, want root", tile)
	}

	h.engine.LayoutModified("DP-1")
	h.clock.Advance(time.Duration(h.cfg.Debounce.LayoutMs-1) * time.Millisecond)
	if got := h.engine.State("DP-1"); got != Shared {
		t.Fatalf("state before debounce = %v, want shared", got)
	}

	h.clock.Advance(time.Millisecond)
	if got := h.engine.State("DP-1"); got != Solo {
		t.Fatalf("state after debounce = %v, want solo", got)
	}
}

func TestUpdateConfigKeepsOldFilterOnError(t *testing.T) {
	h := newHarness(t, testConfig())

	bad := testConfig()
	bad.Eligibility.Ignore = []config.IgnoreRule{{TitlePattern: "("}}
	if err := h.engine.UpdateConfig(bad); err == nil {
		t.Fatalf("expected error for invalid title_pattern")
	}
	if h.engine.config == bad {
		t.Fatalf("config replaced despite error")
	}
}

func TestStatusReportsLeaves(t *testing.T) {
	h := newHarness(t, testConfig())
	h.add(1, rect(100, 100, 300, 200))
	h.settle()
	h.add(2, rect(600, 100, 300, 200))
	h.settle()

	status := h.engine.Status()
	if len(status) != 1 {
		t.Fatalf("status outputs = %d, want 1", len(status))
	}
	st := status[0]
	if st.Name != "DP-1" || st.State != "shared" {
		t.Fatalf("status = %+v", st)
	}
	if len(st.Leaves) != 2 {
		t.Fatalf("leaves = %d, want 2", len(st.Leaves))
	}
	if len(st.Leaves[0].Windows) != 1 || st.Leaves[0].Windows[0] != 2 {
		t.Fatalf("first leaf windows = %v, want [2]", st.Leaves[0].Windows)
	}
	if len(st.Leaves[1].Windows) != 1 || st.Leaves[1].Windows[0] != 1 {
		t.Fatalf("second leaf windows = %v, want [1]", st.Leaves[1].Windows)
	}
}
