package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/web3guy0/bsbot/internal/config"
)

func TestInitWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	closer := Init(config.LogConfig{Level: "debug", File: path, MaxMB: 1})
	t.Cleanup(func() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	log.Debug().Str("round", "20260301001").Msg("probe")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"round":"20260301001"`)
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestInitBadLevelFallsBackToInfo(t *testing.T) {
	closer := Init(config.LogConfig{Level: "loud"})
	assert.NoError(t, closer.Close())
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
