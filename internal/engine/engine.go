// Package engine keeps windows assigned to the leaves of per-output tile trees.
//
// Every entry point is meant to run on a single goroutine (the daemon loop).
// Work that follows a burst of triggers is deferred through debounce
// schedulers whose actions are posted back onto that goroutine, and every
// deferred action re-reads windows and trees before acting.
package engine

import (
	"fmt"
	"log/slog"

	"github.com/1broseidon/autotile/internal/config"
	"github.com/1broseidon/autotile/internal/debounce"
	"github.com/1broseidon/autotile/internal/eligibility"
	"github.com/1broseidon/autotile/internal/platform"
	"github.com/1broseidon/autotile/internal/tiletree"
)

// NoWindow is used as the trigger of passes that no window caused.
const NoWindow platform.WindowID = 0

// State is the per-output solo/shared state.
type State int

const (
	// Shared means zero, or two or more, windows on the output.
	Shared State = iota
	// Solo means exactly one window on the output.
	Solo
)

func (s State) String() string {
	if s == Solo {
		return "solo"
	}
	return "shared"
}

// Options carries the engine's collaborators. Zero values are usable.
type Options struct {
	// Filter overrides the filter built from the config's eligibility section.
	Filter *eligibility.Filter
	Logger *slog.Logger
	Clock  debounce.Clock
	// Post hands a deferred action to the event loop. Nil runs it on the
	// timer goroutine.
	Post func(func())
}

// Engine is the layout engine.
type Engine struct {
	host   Host
	config *config.Config
	filter *eligibility.Filter
	logger *slog.Logger
	clock  debounce.Clock
	post   func(func())

	retile  *debounce.Scheduler
	outputs *debounce.Scheduler
	layouts map[string]*debounce.Scheduler

	moving map[platform.WindowID]bool
	states map[string]State
}

// New creates an engine over host.
func New(host Host, cfg *config.Config, opts Options) (*Engine, error) {
	filter := opts.Filter
	if filter == nil {
		var err error
		filter, err = eligibility.New(cfg.Eligibility)
		if err != nil {
			return nil, fmt.Errorf("eligibility: %w", err)
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		host:    host,
		config:  cfg,
		filter:  filter,
		logger:  logger,
		clock:   opts.Clock,
		post:    opts.Post,
		retile:  debounce.New(opts.Clock, opts.Post),
		outputs: debounce.New(opts.Clock, opts.Post),
		layouts: make(map[string]*debounce.Scheduler),
		moving:  make(map[platform.WindowID]bool),
		states:  make(map[string]State),
	}, nil
}

// UpdateConfig swaps the configuration and rebuilds the eligibility filter.
// On error the previous configuration stays in effect.
func (e *Engine) UpdateConfig(cfg *config.Config) error {
	filter, err := eligibility.New(cfg.Eligibility)
	if err != nil {
		return fmt.Errorf("eligibility: %w", err)
	}
	e.config = cfg
	e.filter = filter
	return nil
}

// WindowAdded tiles a window that just appeared.
func (e *Engine) WindowAdded(id platform.WindowID) {
	v, ok := e.snapshot()
	if !ok {
		return
	}
	w, found := v.find(id)
	if !found {
		e.logger.Debug("added window is gone", "window", id)
		return
	}
	if ok, reason := e.explain(v, w); !ok {
		e.logger.Debug("window not tiled", "window", id, "class", w.Class, "reason", reason)
		return
	}
	e.logger.Info("window added", "window", id, "class", w.Class, "output", w.Output)
	e.rearrangeAndTile(w, nil)
}

// WindowRemoved reflows the output a window disappeared from.
func (e *Engine) WindowRemoved(id platform.WindowID, output string) {
	delete(e.moving, id)
	e.logger.Info("window removed", "window", id, "output", output)
	e.detach(id, output)
}

// MinimizedChanged detaches a minimized window and re-tiles a restored one.
func (e *Engine) MinimizedChanged(id platform.WindowID, minimized bool) {
	v, ok := e.snapshot()
	if !ok {
		return
	}
	w, found := v.find(id)
	if !found {
		return
	}
	if minimized {
		e.logger.Debug("window minimized", "window", id)
		e.detach(id, w.Output)
		return
	}
	if !e.inScope(v, w) {
		return
	}
	e.logger.Debug("window restored", "window", id)
	e.rearrangeAndTile(w, nil)
}

// MoveStepped records that a window is being dragged.
func (e *Engine) MoveStepped(id platform.WindowID) {
	e.moving[id] = true
}

// MoveFinished places a dragged window at the cursor and reflows the outputs
// it may have left.
func (e *Engine) MoveFinished(id platform.WindowID, cursor platform.Point) {
	delete(e.moving, id)

	v, ok := e.snapshot()
	if !ok {
		return
	}
	w, found := v.find(id)
	if !found || !e.inScope(v, w) {
		return
	}
	e.logger.Debug("move finished", "window", id, "cursor", cursor)

	target := e.rearrangeAndTile(w, &cursor)
	e.outputs.Debounce(e.config.Debounce.Retile(), func() {
		e.outputPass(e.otherOutputs(target)...)
	})
}

// OutputChanged re-tiles a window that moved to another output outside of an
// interactive move.
func (e *Engine) OutputChanged(id platform.WindowID, previous string) {
	if e.isMoving() {
		return
	}
	v, ok := e.snapshot()
	if !ok {
		return
	}
	w, found := v.find(id)
	if !found || !e.inScope(v, w) {
		return
	}
	e.logger.Debug("window changed output", "window", id, "from", previous, "to", w.Output)

	e.rearrangeAndTile(w, nil)
	if previous != "" && previous != w.Output {
		e.outputs.Debounce(e.config.Debounce.Retile(), func() {
			e.outputPass(previous)
		})
	}
}

// LayoutModified re-evaluates the solo state once edits to an output's tree
// have settled.
func (e *Engine) LayoutModified(output string) {
	s, ok := e.layouts[output]
	if !ok {
		s = debounce.New(e.clock, e.post)
		e.layouts[output] = s
	}
	s.Debounce(e.config.Debounce.Layout(), func() {
		e.logger.Debug("layout modified", "output", output)
		e.UpdateSolo(output)
	})
}

// OutputsChanged reflows every output after outputs were added, removed or resized.
func (e *Engine) OutputsChanged() {
	e.outputPass(e.outputNames()...)
}

// WorkspaceChanged reflows every output after a desktop or activity switch.
// The output holding the active window gets its solo state right away.
func (e *Engine) WorkspaceChanged() {
	active := e.activeOutput()
	e.outputPass(e.orderedOutputs(active)...)
	if active != "" {
		e.UpdateSolo(active)
	}
}

// Retile runs a full pass right away: resize every tree, then redistribute.
func (e *Engine) Retile() {
	e.logger.Info("retile requested")
	for _, name := range e.outputNames() {
		e.Resize(name)
	}
	e.Redistribute(NoWindow, tiletree.NoTile)
}

// State returns the last solo/shared state computed for an output.
func (e *Engine) State(output string) State {
	return e.states[output]
}

// rearrangeAndTile resizes the target output, places w, and schedules a
// redistribution. It returns the output w was placed on.
func (e *Engine) rearrangeAndTile(w platform.Window, ref *platform.Point) string {
	output := w.Output
	if ref != nil {
		if name := platform.OutputAt(e.host.Outputs(), *ref); name != "" {
			output = name
		}
	}

	fresh := e.Resize(output)

	point := ref
	if point == nil && fresh != tiletree.NoTile {
		if tree, ok := e.host.Tree(output); ok {
			c := tree.Geometry(fresh).Center()
			point = &c
		}
	}

	v, ok := e.snapshot()
	if !ok {
		return output
	}
	if current, found := v.find(w.ID); found {
		w = current
	}
	affected := e.place(v, w, point)

	trigger := w.ID
	e.retile.Debounce(e.config.Debounce.Retile(), func() {
		e.Redistribute(trigger, affected)
	})
	return output
}

// detach clears a window's tile, shrinks its output, and schedules a
// redistribution with no trigger.
func (e *Engine) detach(id platform.WindowID, output string) {
	e.host.ClearTile(id)
	if output != "" {
		e.Resize(output)
	}
	e.retile.Debounce(e.config.Debounce.Retile(), func() {
		e.Redistribute(NoWindow, tiletree.NoTile)
	})
}

// outputPass resizes the given outputs now and, once triggers settle, tiles
// their untiled windows and re-evaluates solo state.
func (e *Engine) outputPass(outputs ...string) {
	if len(outputs) == 0 {
		return
	}
	for _, name := range outputs {
		e.Resize(name)
	}
	e.outputs.Debounce(e.config.Debounce.Retile(), func() {
		for _, name := range outputs {
			e.placeUntiled(name)
			e.UpdateSolo(name)
		}
	})
}

func (e *Engine) placeUntiled(output string) {
	v, ok := e.snapshot()
	if !ok {
		return
	}
	for _, w := range e.windowsOn(v, output) {
		if e.host.TileOf(w.ID) == tiletree.NoTile && !e.aboutToMaximize(v, w) {
			e.place(v, w, nil)
		}
	}
}

// activeOutput returns the output of the focused window, or "".
func (e *Engine) activeOutput() string {
	id, err := e.host.ActiveWindow()
	if err != nil {
		e.logger.Debug("failed to read active window", "error", err)
		return ""
	}
	if id == NoWindow {
		return ""
	}
	windows, err := e.host.Windows()
	if err != nil {
		return ""
	}
	for _, w := range windows {
		if w.ID == id {
			return w.Output
		}
	}
	return ""
}

func (e *Engine) isMoving() bool {
	return len(e.moving) > 0
}

func (e *Engine) outputNames() []string {
	outputs := e.host.Outputs()
	names := make([]string, 0, len(outputs))
	for _, o := range outputs {
		names = append(names, o.Name)
	}
	return names
}

func (e *Engine) otherOutputs(except string) []string {
	var names []string
	for _, name := range e.outputNames() {
		if name != except {
			names = append(names, name)
		}
	}
	return names
}

// orderedOutputs lists outputs with first at the front.
func (e *Engine) orderedOutputs(first string) []string {
	names := []string{}
	if _, ok := e.host.Tree(first); ok {
		names = append(names, first)
	}
	return append(names, e.otherOutputs(first)...)
}
