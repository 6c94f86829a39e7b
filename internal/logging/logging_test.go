package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want log.Level
	}{
		{"debug", log.DebugLevel},
		{"INFO", log.InfoLevel},
		{"warning", log.WarnLevel},
		{"warn", log.WarnLevel},
		{"error", log.ErrorLevel},
		{"bogus", log.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Info("quiet")
	logger.Warn("loud", "output", "DP-1")

	out := buf.String()
	if strings.Contains(out, "quiet") {
		t.Fatalf("info message should be filtered, got %q", out)
	}
	if !strings.Contains(out, "loud") || !strings.Contains(out, "DP-1") {
		t.Fatalf("expected warn message with attrs, got %q", out)
	}
}

func TestSetLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, "warn")

	logger.Debug("before")
	if !SetLevel(logger, "debug") {
		t.Fatalf("SetLevel on a New logger = false, want true")
	}
	logger.Debug("after")

	out := buf.String()
	if strings.Contains(out, "before") {
		t.Fatalf("debug message logged at warn level: %q", out)
	}
	if !strings.Contains(out, "after") {
		t.Fatalf("debug message missing after SetLevel: %q", out)
	}

	if SetLevel(Discard(), "debug") {
		t.Fatalf("SetLevel on a foreign handler = true, want false")
	}
}
