package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("PLATFORM_BASE_URL", "https://api.example.test/api/webapi/")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, PlatformLive, cfg.Platform)
	assert.False(t, cfg.Paper())
	assert.Equal(t, "95", cfg.PhonePrefix)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 2*time.Second, cfg.ReconcileInterval)
	assert.Equal(t, 10, cfg.MaxConsecutiveErrors)
	assert.Equal(t, 3, cfg.BetAttempts)
	assert.Equal(t, 5*time.Second, cfg.BetRetryWait)
	assert.Equal(t, "data/bsbot.db", cfg.DatabasePath)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("PLATFORM", "paper")

	_, err := Load()
	require.Error(t, err)
}

func TestLiveNeedsBaseURL(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("PLATFORM_BASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PLATFORM_BASE_URL")
}

func TestPaperPlatform(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("PLATFORM", "Paper")
	t.Setenv("PAPER_BALANCE", "2500.50")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.Paper())
	assert.Equal(t, "2500.5", cfg.PaperBalance.String())
	assert.EqualValues(t, 1, cfg.AdminID)
}

func TestLoadRequiresAdmin(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("PLATFORM", "paper")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ADMIN_ID")
}

func TestInvalidPlatform(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "1")
	t.Setenv("PLATFORM", "mainnet")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadLogParse(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "logs/bot.log")

	cfg, err := LoadLog()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Level)
	assert.Equal(t, "logs/bot.log", cfg.File)
	assert.Equal(t, 10, cfg.MaxMB)
}
