package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: file logging at info level
	path := filepath.Join(t.TempDir(), "logs", "orderdesk.log")
	logger, cleanup, err := Setup(Config{Level: "info", FilePath: path})
	require.NoError(t, err)

	// When: logging below and at the level
	logger.Debug("hidden")
	logger.Info("catalog_reloaded", slog.Int("products_after", 3))
	cleanup()

	// Then: only the info record is written, as JSON
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 1)

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	assert.Equal(t, "catalog_reloaded", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.EqualValues(t, 3, rec["products_after"])
}

func TestSetup_NoOutputs(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "debug"})
	require.NoError(t, err)
	defer cleanup()

	assert.NotPanics(t, func() { logger.Info("dropped") })
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}

	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("verbose"))
}

func TestDefaultPaths(t *testing.T) {
	assert.Equal(t, "orderdesk.log", filepath.Base(DefaultLogPath()))
	assert.Equal(t, "logs", filepath.Base(DefaultLogDir()))

	cfg := DebugConfig()
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, DefaultLogPath(), cfg.FilePath)
	assert.False(t, cfg.WriteToStderr)
}
