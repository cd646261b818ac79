package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"WARN", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.in), tt.in)
	}
}

func TestJSONOutputWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(NewWithWriter(Config{Level: "info", Format: "json"}, &buf), "planning")

	logger.Debug().Msg("hidden")
	logger.Info().Int("n", 14313).Msg("sample size computed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "planning", entry["component"])
	assert.Equal(t, "sample size computed", entry["message"])
	assert.EqualValues(t, 14313, entry["n"])
	assert.Contains(t, entry, "time")
}

func TestConsoleOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter(Config{Level: "debug", Format: "console"}, &buf)
	logger.Debug().Msg("plain text")
	assert.Contains(t, buf.String(), "plain text")
	assert.Contains(t, buf.String(), "DBG")
}
