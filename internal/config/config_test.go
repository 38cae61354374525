package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 20*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 800*time.Millisecond, cfg.Scraper.PaceMin)
	assert.Equal(t, "pricewatch", cfg.Database.Name)
	assert.Equal(t, "pricewatch:events", cfg.Redis.Stream)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SCRAPER_TIMEOUT", "5s")
	t.Setenv("SCRAPER_PACE_MIN", "100ms")
	t.Setenv("SCRAPER_PACE_MAX", "300ms")
	t.Setenv("DB_PORT", "5433")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 100*time.Millisecond, cfg.Scraper.PaceMin)
	assert.Equal(t, 300*time.Millisecond, cfg.Scraper.PaceMax)
	assert.Equal(t, 5433, cfg.Database.Port)
}

func TestValidateRejectsMisorderedPacing(t *testing.T) {
	t.Setenv("SCRAPER_PACE_MIN", "5s")
	t.Setenv("SCRAPER_PACE_MAX", "1s")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidEnvValuesFallBackToDefaults(t *testing.T) {
	t.Setenv("SCRAPER_TIMEOUT", "not-a-duration")
	t.Setenv("DB_PORT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20*time.Second, cfg.Scraper.Timeout)
	assert.Equal(t, 5432, cfg.Database.Port)
}
