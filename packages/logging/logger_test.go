package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
}

func newTestLogger(buf *bytes.Buffer, level Level, format string) *DefaultLogger {
	l := New(buf, level, format)
	l.now = fixedClock
	return l
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		"INFO":    LevelInfo,
		"warn":    LevelWarn,
		"warning": LevelWarn,
		" error ": LevelError,
		"bogus":   LevelInfo,
		"":        LevelInfo,
	}
	for input, expected := range tests {
		assert.Equal(t, expected, ParseLevel(input), input)
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelWarn, "text")

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	l.Error("shown too")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "[WARN] shown")
	assert.Contains(t, lines[1], "[ERROR] shown too")
}

func TestTextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelDebug, "text")

	l.WithComponent("store").With(F("cell", "A1")).Debug("committed", F("affected", 3))

	assert.Equal(t, "[2024-03-01 12:30:00.000] [DEBUG] [store] committed cell=A1 affected=3\n", buf.String())
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, LevelInfo, "json")

	l.WithComponent("persist").Info("saved", F("path", "a.xml"), Err(errors.New("boom")))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "INFO", decoded["level"])
	assert.Equal(t, "saved", decoded["message"])
	assert.Equal(t, "persist", decoded["component"])
	assert.Equal(t, "2024-03-01T12:30:00Z", decoded["timestamp"])

	fields, ok := decoded["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "a.xml", fields["path"])
	assert.Equal(t, "boom", fields["error"])
}

func TestDerivedLoggersDoNotShareFields(t *testing.T) {
	var buf bytes.Buffer
	base := newTestLogger(&buf, LevelInfo, "text")

	a := base.With(F("a", 1))
	b := base.With(F("b", 2))
	a.Info("x")
	b.Info("y")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasSuffix(lines[0], "x a=1"))
	assert.True(t, strings.HasSuffix(lines[1], "y b=2"))
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("nothing")
	assert.NotNil(t, l.With(F("k", "v")).WithComponent("c"))
}
