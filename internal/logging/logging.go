// Package logging builds the slog loggers used across the mirror. Records
// are rendered by a charmbracelet/log handler.
package logging

import (
	"io"
	"log/slog"
	"strings"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// LevelTrace is below debug and is used for git command lines.
const LevelTrace = slog.Level(-8)

var levelStrings = map[string]slog.Level{
	"trace": LevelTrace,
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a level name to its slog level. Unknown names fall back
// to info and report false.
func ParseLevel(name string) (slog.Level, bool) {
	if v, ok := levelStrings[strings.ToLower(strings.TrimSpace(name))]; ok {
		return v, true
	}
	return slog.LevelInfo, false
}

// New returns a logger writing to w at the given level name.
func New(level string, w io.Writer) *slog.Logger {
	lvl, _ := ParseLevel(level)
	handler := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(lvl),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
	})
	return slog.New(handler)
}

// Discard returns a logger that drops everything, for tests.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
