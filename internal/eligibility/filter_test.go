package eligibility

import (
	"strings"
	"testing"

	"github.com/1broseidon/autotile/internal/config"
	"github.com/1broseidon/autotile/internal/platform"
)

func defaultFilter(t *testing.T) *Filter {
	t.Helper()
	f, err := New(config.DefaultConfig().Eligibility)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return f
}

func TestDefaultRules(t *testing.T) {
	f := defaultFilter(t)

	tests := []struct {
		name  string
		class string
		title string
		typ   platform.WindowType
		want  bool
	}{
		{"editor", "org.kde.kate", "notes.txt", platform.WindowTypeNormal, true},
		{"konsole confirm", "org.kde.konsole", "Confirm Close", platform.WindowTypeNormal, false},
		{"konsole shell", "org.kde.konsole", "~ : bash", platform.WindowTypeNormal, true},
		{"spectacle", "org.kde.spectacle", "Spectacle", platform.WindowTypeNormal, false},
		{"plasma shell", "org.kde.plasmashell", "Plasma", platform.WindowTypeNormal, false},
		{"plasma other", "org.kde.plasmashell", "Widgets", platform.WindowTypeNormal, true},
		{"jetbrains splash", "jetbrains-goland", "splash", platform.WindowTypeNormal, false},
		{"jetbrains ide", "jetbrains-goland", "autotile", platform.WindowTypeNormal, true},
		{"steam game", "steam_app_570", "Dota 2", platform.WindowTypeNormal, false},
		{"ktorrent", "org.kde.ktorrent", "KTorrent", platform.WindowTypeNormal, false},
		{"dialog", "org.kde.kate", "Save", platform.WindowTypeDialog, false},
		{"class case", "ORG.KDE.SPECTACLE", "x", platform.WindowTypeNormal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := platform.Window{Class: tt.class, Title: tt.title, Type: tt.typ}
			if got := f.Eligible(w); got != tt.want {
				t.Fatalf("Eligible(%q, %q) = %v, want %v", tt.class, tt.title, got, tt.want)
			}
		})
	}
}

func TestExplainNamesTheRule(t *testing.T) {
	f := defaultFilter(t)

	ok, reason := f.Explain(platform.Window{Class: "steam_app_1", Type: platform.WindowTypeNormal})
	if ok {
		t.Fatalf("expected steam window to be rejected")
	}
	if !strings.Contains(reason, "steam_app_") {
		t.Fatalf("reason = %q, want it to name the rule", reason)
	}

	ok, reason = f.Explain(platform.Window{Type: platform.WindowTypeSplash})
	if ok || !strings.Contains(reason, "splash") {
		t.Fatalf("Explain(splash) = %v, %q", ok, reason)
	}
}

func TestTitlePattern(t *testing.T) {
	f, err := New(config.EligibilityConfig{
		WindowTypes: []string{"normal", "dialog"},
		Ignore:      []config.IgnoreRule{{Class: "firefox", TitlePattern: `^Picture-in-Picture$`}},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if f.Eligible(platform.Window{Class: "firefox", Title: "Picture-in-Picture", Type: platform.WindowTypeNormal}) {
		t.Fatalf("pip window should be ignored")
	}
	if !f.Eligible(platform.Window{Class: "firefox", Title: "Mozilla Firefox", Type: platform.WindowTypeNormal}) {
		t.Fatalf("browser window should be eligible")
	}
	if !f.Eligible(platform.Window{Class: "kate", Title: "Save", Type: platform.WindowTypeDialog}) {
		t.Fatalf("dialogs are configured as eligible")
	}
}

func TestNewRejectsBadRules(t *testing.T) {
	if _, err := New(config.EligibilityConfig{Ignore: []config.IgnoreRule{{}}}); err == nil {
		t.Fatalf("expected error for empty rule")
	}
	if _, err := New(config.EligibilityConfig{Ignore: []config.IgnoreRule{{TitlePattern: "["}}}); err == nil {
		t.Fatalf("expected error for invalid pattern")
	}
}

func TestScopeContains(t *testing.T) {
	scope := Scope{Desktop: 1, Activity: "work"}

	tests := []struct {
		name string
		w    platform.Window
		want bool
	}{
		{"same desktop", platform.Window{Desktop: 1}, true},
		{"other desktop", platform.Window{Desktop: 2}, false},
		{"sticky", platform.Window{Desktop: platform.AllDesktops}, true},
		{"matching activity", platform.Window{Desktop: 1, Activities: []string{"home", "work"}}, true},
		{"other activity", platform.Window{Desktop: 1, Activities: []string{"home"}}, false},
	}
	for _, tt := range tests {
		if got := scope.Contains(tt.w); got != tt.want {
			t.Fatalf("%s: Contains = %v, want %v", tt.name, got, tt.want)
		}
	}

	unknown := Scope{Desktop: 1}
	if !unknown.Contains(platform.Window{Desktop: 1, Activities: []string{"home"}}) {
		t.Fatalf("unknown current activity should match any window")
	}
}
