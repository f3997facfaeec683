package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var lines []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		lines = append(lines, m)
	}
	return lines
}

func TestZerologLogger(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	l := NewZerologLogger(zerolog.New(&buf), Config{LogLevel: Warn, SlowThreshold: time.Millisecond})

	l.Info(ctx, "hidden")
	l.Warn(ctx, "vendor missing")
	l.Trace(ctx, time.Now().Add(-time.Second), func() (string, int64) { return "SELECT 1", 2 }, nil)
	l.Trace(ctx, time.Now(), func() (string, int64) { return "SELECT 2", -1 }, errors.New("boom"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 3)
	assert.Equal(t, "vendor missing", lines[0]["message"])
	assert.Equal(t, "warn", lines[1]["level"])
	assert.Equal(t, "SELECT 1", lines[1]["sql"])
	assert.Equal(t, float64(2), lines[1]["rows"])
	assert.Equal(t, "error", lines[2]["level"])
	assert.Equal(t, "boom", lines[2]["error"])
}

func TestZerologLevel(t *testing.T) {
	assert.Equal(t, zerolog.Disabled, ZerologLevel(Silent))
	assert.Equal(t, zerolog.ErrorLevel, ZerologLevel(Error))
	assert.Equal(t, zerolog.InfoLevel, ZerologLevel(Info))
}
