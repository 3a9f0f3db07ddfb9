package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_LevelAndComponent(t *testing.T) {
	var buf bytes.Buffer
	log := New("warn", &buf, "cache")

	log.Info().Msg("dropped")
	assert.Zero(t, buf.Len())

	log.Warn().Str("key", "/bookings").Msg("persistent write failed")
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "cache", line["component"])
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "/bookings", line["key"])
}

func TestNew_UnknownLevelIsInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New("chatty", &buf, "x")
	log.Debug().Msg("no")
	log.Info().Msg("yes")
	assert.Contains(t, buf.String(), `"message":"yes"`)
	assert.NotContains(t, buf.String(), `"message":"no"`)
}
