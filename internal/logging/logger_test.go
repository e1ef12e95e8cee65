package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", DEBUG},
		{"DEBUG", DEBUG},
		{"info", INFO},
		{"warning", WARN},
		{"WARN", WARN},
		{"error", ERROR},
		{"bogus", INFO},
		{"", INFO},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, WARN, false)

	l.Debug("hidden debug")
	l.Info("hidden info")
	l.Warn("visible warn")
	l.Error("visible error")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible warn")
	assert.Contains(t, out, "visible error")
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, DEBUG, true).WithField("session", "abc")

	l.Info("stream started", map[string]interface{}{"pid": 42})

	line := strings.TrimSpace(buf.String())
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "stream started", entry["msg"])
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "abc", entry["session"])
	assert.Equal(t, float64(42), entry["pid"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLoggerTo(&buf, DEBUG, true)
	_ = parent.WithField("step", "clear")

	parent.Info("plain")

	assert.NotContains(t, buf.String(), "clear")
}

func TestNopDiscards(t *testing.T) {
	l := Nop()
	l.Error("nothing")
	assert.NoError(t, l.Sync())
}
