package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_WritesComponentRecordsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "client.log")

	logger, err := New(path, "debug")
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Close() })

	logger.Component(ComponentCache).Debug("entry fetched", "key", "posts")
	require.NoError(t, logger.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "component=cache")
	assert.Contains(t, out, "entry fetched")
	assert.Equal(t, path, logger.Path())
}

func TestNew_EmptyPathDiscards(t *testing.T) {
	logger, err := New("  ", "info")
	require.NoError(t, err)
	assert.Equal(t, "", logger.Path())
	assert.NoError(t, logger.Close())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "level %q", in)
	}
}

func TestNewWriter_RespectsLevel(t *testing.T) {
	var b strings.Builder
	logger := NewWriter(&b, "warn")
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, b.String(), "hidden")
	assert.Contains(t, b.String(), "shown")
}
