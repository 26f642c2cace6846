package app

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewLogger(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		level     string
		format    string
		enabled   slog.Level
		disabled  slog.Level
		wantStart string
	}{
		{name: "debug text", level: "debug", format: "text", enabled: slog.LevelDebug, disabled: slog.LevelDebug - 1, wantStart: "time="},
		{name: "warn json", level: "warn", format: "json", enabled: slog.LevelWarn, disabled: slog.LevelInfo, wantStart: "{"},
		{name: "unknown level falls back to info", level: "loud", format: "text", enabled: slog.LevelInfo, disabled: slog.LevelDebug, wantStart: "time="},
		{name: "unknown format renders text", level: "error", format: "xml", enabled: slog.LevelError, disabled: slog.LevelWarn, wantStart: "time="},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			// --- Arrange ---
			out := &bytes.Buffer{}

			// --- Act ---
			logger := newLogger(tc.level, tc.format, out)
			logger.Log(context.Background(), tc.enabled, "Suite compiled.", "suite", "s")

			// --- Assert ---
			ctx := context.Background()
			assert.True(t, logger.Enabled(ctx, tc.enabled))
			assert.False(t, logger.Enabled(ctx, tc.disabled))
			assert.Contains(t, out.String(), "Suite compiled.")
			assert.True(t, bytes.HasPrefix(out.Bytes(), []byte(tc.wantStart)), out.String())
		})
	}
}
