package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit(t *testing.T) {
	t.Run("rejects unknown level", func(t *testing.T) {
		assert.Error(t, Init(Config{Level: "shouting"}))
	})

	t.Run("debug overrides level", func(t *testing.T) {
		require.NoError(t, Init(Config{Level: "error", Debug: true}))
		assert.Equal(t, "debug", GetLogger().GetLevel().String())
	})
}

func TestWithComponent(t *testing.T) {
	require.NoError(t, Init(Config{Level: "info"}))

	var buf bytes.Buffer
	SetOutput(&buf)

	l := WithComponent("registry")
	l.Info().Str("mac", "AA:BB:CC:DD:EE:01").Msg("record saved")
	l.Debug().Msg("filtered")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "registry", entry["component"])
	assert.Equal(t, "record saved", entry["message"])
	assert.Equal(t, "AA:BB:CC:DD:EE:01", entry["mac"])
}
