package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_JSON(t *testing.T) {
	var buf bytes.Buffer
	Init("debug", FormatJSON, &buf)
	t.Cleanup(InitDefault)

	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	log.Info().Str("user", "bob").Msg("session issued")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session issued", entry["message"])
	assert.Equal(t, "bob", entry["user"])
	assert.Equal(t, "info", entry["level"])
}

func TestInit_UnknownLevel(t *testing.T) {
	var buf bytes.Buffer
	Init("loud", FormatConsole, &buf)
	t.Cleanup(InitDefault)

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
	assert.Contains(t, buf.String(), "unknown log level")
}

func TestInit_LevelFilters(t *testing.T) {
	var buf bytes.Buffer
	Init("warn", FormatJSON, &buf)
	t.Cleanup(InitDefault)

	log.Info().Msg("hidden")
	assert.Empty(t, buf.String())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}
