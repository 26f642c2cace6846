package app

import (
	"io"
	"log/slog"
)

// newLogger builds the compiler's logger from the validated log flags. Unknown
// levels fall back to info and any format other than json renders as text.
// The global logger is left untouched.
func newLogger(level, format string, w io.Writer) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
