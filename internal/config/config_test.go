package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestFromEnvRequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	require.ErrorIs(t, FromEnv().Validate(), ErrMissingSecret)
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 24*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "data/manhwa.db", cfg.DBPath)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "https://api.mangadex.org", cfg.MangaDexURL)
	assert.Equal(t, int64(1000), cfg.CatalogCacheSize)
	assert.Equal(t, 5, cfg.ConflictRetries)
	assert.True(t, cfg.SeedLevelTasks)
	assert.Equal(t, zapcore.InfoLevel, cfg.ZapLevel())
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("JWT_TTL", "2h")
	t.Setenv("PORT", "9000")
	t.Setenv("CATALOG_CACHE_TTL", "30s")
	t.Setenv("CONFLICT_RETRIES", "9")
	t.Setenv("SEED_LEVEL_TASKS", "false")
	t.Setenv("LOG_LEVEL", "debug")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 2*time.Hour, cfg.JWTTTL)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 30*time.Second, cfg.CatalogCacheTTL)
	assert.Equal(t, 9, cfg.ConflictRetries)
	assert.False(t, cfg.SeedLevelTasks)
	assert.Equal(t, zapcore.DebugLevel, cfg.ZapLevel())
}

func TestMalformedValuesFallBack(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("CONFLICT_RETRIES", "many")
	t.Setenv("CATALOG_TIMEOUT", "soon")
	t.Setenv("SEED_LEVEL_TASKS", "maybe")
	t.Setenv("LOG_LEVEL", "loud")

	cfg := FromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 5, cfg.ConflictRetries)
	assert.Equal(t, 10*time.Second, cfg.CatalogTimeout)
	assert.True(t, cfg.SeedLevelTasks)
	assert.Equal(t, zapcore.InfoLevel, cfg.ZapLevel())
}
