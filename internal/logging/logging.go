// Package logging builds the daemon's slog logger on a charmbracelet/log handler.
package logging

import (
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/log"
)

// ParseLevel maps a config log_level onto a charmbracelet level. "warning"
// is accepted as an alias of "warn"; anything unknown falls back to info.
func ParseLevel(level string) log.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return log.InfoLevel
	}
	return lvl
}

// New returns a logger writing to w at the given config level.
func New(w io.Writer, level string) *slog.Logger {
	handler := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           ParseLevel(level),
	})
	return slog.New(handler)
}

// SetLevel changes the level of a logger built by New. It reports false for
// loggers with any other handler.
func SetLevel(logger *slog.Logger, level string) bool {
	h, ok := logger.Handler().(*log.Logger)
	if !ok {
		return false
	}
	h.SetLevel(ParseLevel(level))
	return true
}

// Discard returns a logger that drops everything.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
