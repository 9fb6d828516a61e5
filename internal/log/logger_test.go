package log

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithWriterProduction(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("production", &buf)

	logger.Debug().Msg("hidden")
	logger.Info().Str("user_id", "u1").Msg("timer started")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &entry))
	assert.Equal(t, "timer started", entry["message"])
	assert.Equal(t, "u1", entry["user_id"])
	assert.Equal(t, "production", entry["env"])
	assert.Equal(t, "timetrack-api", entry["service"])
}

func TestNewWithWriterDevelopmentLogsDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWithWriter("development", &buf)

	logger.Debug().Msg("visible")
	assert.Contains(t, buf.String(), "visible")
}
