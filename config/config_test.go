package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:1337/api", cfg.BaseURL)
	assert.Equal(t, "file", cfg.StorageBackend)
	assert.Equal(t, 24*time.Hour, cfg.TokenValidity())
	assert.Equal(t, 5*time.Minute, cfg.RefreshThreshold())
	assert.Equal(t, 15*time.Minute, cfg.AuthWindow())
	assert.Equal(t, 5, cfg.AuthMaxAttempts)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout())
	assert.Equal(t, time.Minute, cfg.ContentCacheTTL())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("EDUFLOW_BASE_URL", "https://cms.example.com/api")
	t.Setenv("EDUFLOW_REFRESH_THRESHOLD_MIN", "10")
	t.Setenv("EDUFLOW_STORAGE_BACKEND", "memory")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://cms.example.com/api", cfg.BaseURL)
	assert.Equal(t, 10*time.Minute, cfg.RefreshThreshold())
	assert.Equal(t, "memory", cfg.StorageBackend)
}
