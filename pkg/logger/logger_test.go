package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriter_StructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewWithWriter("info", &buf)

	log.Info().Str("policy_id", "pol-1").Msg("Policy settled")

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))

	assert.Equal(t, "Policy settled", output["message"])
	assert.Equal(t, "pol-1", output["policy_id"])
	assert.Equal(t, "info", output["level"])
	assert.Equal(t, ServiceName, output["service"])
	assert.Contains(t, output, "time")
}

func TestComponent_TagsChildLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter("info", &buf)

	child := Component(base, "payouts")
	child.Warn().Msg("Unknown correlation id")

	var output map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &output))
	assert.Equal(t, "payouts", output["component"])
	assert.Equal(t, ServiceName, output["service"])
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		level     string
		debugShow bool
		infoShow  bool
		warnShow  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{" WARNING ", false, false, true},
		{"warn", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var debugBuf, infoBuf, warnBuf bytes.Buffer
			debugLog := NewWithWriter(tt.level, &debugBuf)
			debugLog.Debug().Msg("d")
			infoLog := NewWithWriter(tt.level, &infoBuf)
			infoLog.Info().Msg("i")
			warnLog := NewWithWriter(tt.level, &warnBuf)
			warnLog.Warn().Msg("w")

			assert.Equal(t, tt.debugShow, debugBuf.Len() > 0, "debug")
			assert.Equal(t, tt.infoShow, infoBuf.Len() > 0, "info")
			assert.Equal(t, tt.warnShow, warnBuf.Len() > 0, "warn")
		})
	}
}

func TestNew_PrettyMode(t *testing.T) {
	// Pretty mode writes to stdout; only check it does not panic.
	log := New("info", true)
	log.Info().Msg("pretty mode test")
}
