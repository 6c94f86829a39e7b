package config

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Margins reserves space along each edge of an output.
type Margins struct {
	Top    int `yaml:"top"`
	Bottom int `yaml:"bottom"`
	Left   int `yaml:"left"`
	Right  int `yaml:"right"`
}

// DebounceConfig holds the quiet windows, in milliseconds, used to coalesce
// bursty triggers.
type DebounceConfig struct {
	RetileMs     int `yaml:"retile_ms"`      // redistribution after a window trigger
	LayoutMs     int `yaml:"layout_ms"`      // solo evaluation after a tree edit
	MoveSettleMs int `yaml:"move_settle_ms"` // quiet time that ends an interactive move
}

func (d DebounceConfig) Retile() time.Duration { return time.Duration(d.RetileMs) * time.Millisecond }
func (d DebounceConfig) Layout() time.Duration { return time.Duration(d.LayoutMs) * time.Millisecond }
func (d DebounceConfig) MoveSettle() time.Duration {
	return time.Duration(d.MoveSettleMs) * time.Millisecond
}

// IgnoreRule excludes windows from tiling. Every non-empty field must match.
// Class fields compare against WM_CLASS, title fields against the window title.
type IgnoreRule struct {
	Class         string `yaml:"class,omitempty"`
	ClassPrefix   string `yaml:"class_prefix,omitempty"`
	ClassContains string `yaml:"class_contains,omitempty"`
	Title         string `yaml:"title,omitempty"`
	TitlePrefix   string `yaml:"title_prefix,omitempty"`
	TitleContains string `yaml:"title_contains,omitempty"`
	TitlePattern  string `yaml:"title_pattern,omitempty"` // Go regexp
}

// Empty reports whether the rule has no conditions.
func (r IgnoreRule) Empty() bool {
	return r == IgnoreRule{}
}

func (r IgnoreRule) String() string {
	var parts []string
	add := func(key, val string) {
		if val != "" {
			parts = append(parts, fmt.Sprintf("%s=%q", key, val))
		}
	}
	add("class", r.Class)
	add("class_prefix", r.ClassPrefix)
	add("class_contains", r.ClassContains)
	add("title", r.Title)
	add("title_prefix", r.TitlePrefix)
	add("title_contains", r.TitleContains)
	add("title_pattern", r.TitlePattern)
	return strings.Join(parts, " ")
}

// EligibilityConfig decides which windows are tiled at all.
type EligibilityConfig struct {
	WindowTypes []string     `yaml:"window_types"`
	Ignore      []IgnoreRule `yaml:"ignore"`
}

// Config is the effective daemon configuration.
type Config struct {
	Include IncludeList `yaml:"include,omitempty"`

	LogLevel       string `yaml:"log_level"`
	RetileHotkey   string `yaml:"retile_hotkey"`
	SplitDirection string `yaml:"split_direction"`

	// MaxTiles caps the leaf count per output. 0 means unlimited.
	MaxTiles      int     `yaml:"max_tiles"`
	TilePadding   int     `yaml:"tile_padding"`
	ScreenPadding Margins `yaml:"screen_padding"`

	SoloMaximize            bool `yaml:"solo_maximize"`
	MaximizeWhenNoLayout    bool `yaml:"maximize_when_no_layout"`
	RootTileFallback        bool `yaml:"root_tile_fallback"`
	RearrangeLayout         bool `yaml:"rearrange_layout"`
	RearrangeWindows        bool `yaml:"rearrange_windows"`
	RearrangeBetweenOutputs bool `yaml:"rearrange_between_outputs"`
	PaddingAwareMaximize    bool `yaml:"padding_aware_maximize"`
	ForceRedraw             bool `yaml:"force_redraw"`

	Debounce          DebounceConfig    `yaml:"debounce"`
	ReconcileInterval time.Duration     `yaml:"reconcile_interval"`
	Eligibility       EligibilityConfig `yaml:"eligibility"`
}

// DefaultIgnoreRules are windows known to misbehave when tiled.
func DefaultIgnoreRules() []IgnoreRule {
	return []IgnoreRule{
		{Class: "org.kde.konsole", TitlePrefix: "Confirm "},
		{Class: "org.kde.spectacle"},
		{Class: "org.kde.plasmashell", Title: "Plasma"},
		{ClassContains: "jetbrains", Title: "splash"},
		{ClassPrefix: "steam_app_"},
		{ClassPrefix: "org.kde.ktorrent"},
	}
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:                "info",
		RetileHotkey:            "Mod4-Mod1-t",
		SplitDirection:          "horizontal",
		MaxTiles:                0,
		TilePadding:             4,
		SoloMaximize:            true,
		MaximizeWhenNoLayout:    false,
		RootTileFallback:        true,
		RearrangeLayout:         true,
		RearrangeWindows:        true,
		RearrangeBetweenOutputs: true,
		PaddingAwareMaximize:    true,
		ForceRedraw:             true,
		Debounce: DebounceConfig{
			RetileMs:     500,
			LayoutMs:     1000,
			MoveSettleMs: 150,
		},
		ReconcileInterval: 10 * time.Second,
		Eligibility: EligibilityConfig{
			WindowTypes: []string{"normal"},
			Ignore:      DefaultIgnoreRules(),
		},
	}
}

// Validate checks value ranges. It returns the first problem as a *ValidationError.
func (c *Config) Validate() error {
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return &ValidationError{Path: "log_level", Err: fmt.Errorf("log_level must be one of: debug, info, warn, error")}
	}
	switch c.SplitDirection {
	case "horizontal", "vertical":
	default:
		return &ValidationError{Path: "split_direction", Err: fmt.Errorf("split_direction must be one of: horizontal, vertical")}
	}
	if c.MaxTiles < 0 {
		return &ValidationError{Path: "max_tiles", Err: fmt.Errorf("max_tiles must be >= 0")}
	}
	if c.TilePadding < 0 {
		return &ValidationError{Path: "tile_padding", Err: fmt.Errorf("tile_padding must be >= 0")}
	}
	if c.ScreenPadding.Top < 0 || c.ScreenPadding.Bottom < 0 || c.ScreenPadding.Left < 0 || c.ScreenPadding.Right < 0 {
		return &ValidationError{Path: "screen_padding", Err: fmt.Errorf("screen_padding values must be >= 0")}
	}
	if c.Debounce.RetileMs <= 0 {
		return &ValidationError{Path: "debounce.retile_ms", Err: fmt.Errorf("retile_ms must be > 0")}
	}
	if c.Debounce.LayoutMs <= 0 {
		return &ValidationError{Path: "debounce.layout_ms", Err: fmt.Errorf("layout_ms must be > 0")}
	}
	if c.Debounce.MoveSettleMs <= 0 {
		return &ValidationError{Path: "debounce.move_settle_ms", Err: fmt.Errorf("move_settle_ms must be > 0")}
	}
	if c.ReconcileInterval <= 0 {
		return &ValidationError{Path: "reconcile_interval", Err: fmt.Errorf("reconcile_interval must be > 0")}
	}
	if len(c.Eligibility.WindowTypes) == 0 {
		return &ValidationError{Path: "eligibility.window_types", Err: fmt.Errorf("window_types must not be empty")}
	}
	for i, rule := range c.Eligibility.Ignore {
		if rule.Empty() {
			return &ValidationError{Path: "eligibility.ignore", Err: fmt.Errorf("rule %d has no conditions", i)}
		}
		if rule.TitlePattern != "" {
			if _, err := regexp.Compile(rule.TitlePattern); err != nil {
				return &ValidationError{Path: "eligibility.ignore", Err: fmt.Errorf("rule %d: invalid title_pattern: %w", i, err)}
			}
		}
	}
	return nil
}

// ValidationError ties a config problem to its YAML path and, when known,
// the file position that set it.
type ValidationError struct {
	Path   string
	Source Source
	Err    error
}

func (e *ValidationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Source.Kind == SourceFile && e.Source.File != "" && e.Source.Line > 0 {
		return fmt.Sprintf("%s:%d:%d: %s: %v", e.Source.File, e.Source.Line, e.Source.Column, e.Path, e.Err)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return e.Err.Error()
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
