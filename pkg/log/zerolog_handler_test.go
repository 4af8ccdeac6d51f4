package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	buf.Reset()
	return m
}

func TestZerologHandlerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewZerologHandler(zerolog.New(&buf), slog.LevelDebug))

	logger.Warn("NODE 5: Adding device",
		"node_id", uint8(5),
		"operation", "INCLUSION",
		"ok", true,
		"wait", 2*time.Second,
		"error", errors.New("boom"),
	)

	m := decodeLine(t, &buf)
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "NODE 5: Adding device", m["message"])
	assert.Equal(t, float64(5), m["node_id"])
	assert.Equal(t, "INCLUSION", m["operation"])
	assert.Equal(t, true, m["ok"])
	assert.Equal(t, "boom", m["error"])
	assert.Contains(t, m, "wait")
	assert.Contains(t, m, zerolog.TimestampFieldName)
}

func TestZerologHandlerLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewZerologHandler(zerolog.New(&buf), nil))

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Error("shown")
	m := decodeLine(t, &buf)
	assert.Equal(t, "error", m["level"])
}

func TestZerologHandlerWithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewZerologHandler(zerolog.New(&buf), nil)).
		With("session_id", "abc").
		WithGroup("frame")

	logger.Info("status", "status", 3, slog.Group("extra", "node", 7))

	m := decodeLine(t, &buf)
	assert.Equal(t, "abc", m["session_id"])
	assert.Equal(t, float64(3), m["frame.status"])
	assert.Equal(t, float64(7), m["frame.extra.node"])
}
