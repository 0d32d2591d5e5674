package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loyaltyhub/points-ledger/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/loyalty")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, 365*24*time.Hour, cfg.EarnTTL())
	assert.Equal(t, 24*time.Hour, cfg.SweepEvery())
	assert.Equal(t, 5*time.Second, cfg.LockTimeout())
	assert.Empty(t, cfg.NATSURL)
	assert.Empty(t, cfg.AdminTokenHash)
}

func TestLoad_MissingDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := config.Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/loyalty")
	t.Setenv("PORT", "9090")
	t.Setenv("EARN_TTL_DAYS", "30")
	t.Setenv("LOCK_TIMEOUT_MS", "250")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 30*24*time.Hour, cfg.EarnTTL())
	assert.Equal(t, 250*time.Millisecond, cfg.LockTimeout())
}

func TestTierDefinitions(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/loyalty")

	cfg, err := config.Load()
	require.NoError(t, err)

	defs, err := cfg.TierDefinitions()
	require.NoError(t, err)
	require.Len(t, defs, 4)
	assert.Equal(t, "Bronze", defs[0].Name)

	cfg.TierThresholds = "Basic:0,Elite:1000:1.5"
	defs, err = cfg.TierDefinitions()
	require.NoError(t, err)
	require.Len(t, defs, 2)
	assert.Equal(t, "Elite", defs[1].Name)
	assert.Equal(t, 1.5, defs[1].Multiplier)

	cfg.TierThresholds = "Broken:10"
	_, err = cfg.TierDefinitions()
	assert.Error(t, err, "lowest tier must start at zero")
}
