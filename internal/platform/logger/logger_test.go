package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clerk/internal/platform/config"
)

func TestNewWithWriter(t *testing.T) {
	t.Run("json at warn drops info", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewWithWriter(&buf, config.Log{Level: "warn", Format: "json"})
		log.Info("hidden")
		log.Warn("shown", "client_id", "42")

		var entry map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
		assert.Equal(t, "shown", entry["msg"])
		assert.Equal(t, "42", entry["client_id"])
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		NewWithWriter(&buf, config.Log{Level: "debug", Format: "text"}).Debug("hello")
		assert.Contains(t, buf.String(), "msg=hello")
	})
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}
