// Package config reads server settings from the environment.
package config

import (
	"errors"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	JWTSecret string
	JWTTTL    time.Duration

	DBPath string
	Port   string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	MangaDexURL      string
	MangaDexCoverURL string
	CatalogTimeout   time.Duration
	CatalogCacheSize int64
	CatalogCacheTTL  time.Duration

	ConflictRetries int
	LogLevel        string
	SeedLevelTasks  bool
}

var ErrMissingSecret = errors.New("JWT_SECRET environment variable is required")

// FromEnv reads the settings. Call Validate before serving.
func FromEnv() *Config {
	cfg := &Config{
		JWTSecret: envString("JWT_SECRET", ""),
		JWTTTL:    envDuration("JWT_TTL", 24*time.Hour),

		DBPath: envString("DB_PATH", "data/manhwa.db"),
		Port:   envString("PORT", "8080"),

		ReadTimeout:     envDuration("HTTP_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:    envDuration("HTTP_WRITE_TIMEOUT", 30*time.Second),
		IdleTimeout:     envDuration("HTTP_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout: envDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),

		MangaDexURL:      envString("MANGADEX_API_URL", "https://api.mangadex.org"),
		MangaDexCoverURL: envString("MANGADEX_COVER_URL", "https://uploads.mangadex.org/covers"),
		CatalogTimeout:   envDuration("CATALOG_TIMEOUT", 10*time.Second),
		CatalogCacheSize: envInt64("CATALOG_CACHE_SIZE", 1000),
		CatalogCacheTTL:  envDuration("CATALOG_CACHE_TTL", 10*time.Minute),

		ConflictRetries: envInt("CONFLICT_RETRIES", 5),
		LogLevel:        envString("LOG_LEVEL", "info"),
		SeedLevelTasks:  envBool("SEED_LEVEL_TASKS", true),
	}

	return cfg
}

// Validate reports settings the server cannot run without.
func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return ErrMissingSecret
	}
	return nil
}

// ZapLevel parses LogLevel, falling back to info.
func (c *Config) ZapLevel() zapcore.Level {
	lvl, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return zapcore.InfoLevel
	}
	return lvl
}
