// Package eligibility decides which windows the layout engine manages.
package eligibility

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/1broseidon/autotile/internal/config"
	"github.com/1broseidon/autotile/internal/platform"
)

type rule struct {
	config.IgnoreRule
	pattern *regexp.Regexp
}

func (r rule) matches(w platform.Window) bool {
	class := strings.ToLower(w.Class)
	if r.Class != "" && class != strings.ToLower(r.Class) {
		return false
	}
	if r.ClassPrefix != "" && !strings.HasPrefix(class, strings.ToLower(r.ClassPrefix)) {
		return false
	}
	if r.ClassContains != "" && !strings.Contains(class, strings.ToLower(r.ClassContains)) {
		return false
	}
	if r.Title != "" && w.Title != r.Title {
		return false
	}
	if r.TitlePrefix != "" && !strings.HasPrefix(w.Title, r.TitlePrefix) {
		return false
	}
	if r.TitleContains != "" && !strings.Contains(w.Title, r.TitleContains) {
		return false
	}
	if r.pattern != nil && !r.pattern.MatchString(w.Title) {
		return false
	}
	return true
}

// Filter is a pure window predicate built from config.
type Filter struct {
	types []platform.WindowType
	rules []rule
}

// New compiles cfg into a Filter.
func New(cfg config.EligibilityConfig) (*Filter, error) {
	f := &Filter{}
	for _, t := range cfg.WindowTypes {
		f.types = append(f.types, platform.WindowType(strings.ToLower(strings.TrimSpace(t))))
	}
	for i, r := range cfg.Ignore {
		if r.Empty() {
			return nil, fmt.Errorf("ignore rule %d has no conditions", i)
		}
		compiled := rule{IgnoreRule: r}
		if r.TitlePattern != "" {
			re, err := regexp.Compile(r.TitlePattern)
			if err != nil {
				return nil, fmt.Errorf("ignore rule %d: %w", i, err)
			}
			compiled.pattern = re
		}
		f.rules = append(f.rules, compiled)
	}
	return f, nil
}

// Eligible reports whether w should be tiled.
func (f *Filter) Eligible(w platform.Window) bool {
	ok, _ := f.Explain(w)
	return ok
}

// Explain is Eligible plus the reason for a rejection.
func (f *Filter) Explain(w platform.Window) (bool, string) {
	if f == nil {
		return true, ""
	}
	if !slices.Contains(f.types, w.Type) {
		return false, fmt.Sprintf("window type %q is not tiled", w.Type)
	}
	for _, r := range f.rules {
		if r.matches(w) {
			return false, "ignored by rule: " + r.String()
		}
	}
	return true, ""
}

// Scope is the desktop and activity the user is looking at.
type Scope struct {
	Desktop  int
	Activity string
}

// Contains reports whether w is visible in s. Sticky windows are on every
// desktop; a window without activities, or an unknown current activity,
// matches any activity.
func (s Scope) Contains(w platform.Window) bool {
	if w.Desktop != platform.AllDesktops && w.Desktop != s.Desktop {
		return false
	}
	if len(w.Activities) == 0 || s.Activity == "" {
		return true
	}
	return slices.Contains(w.Activities, s.Activity)
}
