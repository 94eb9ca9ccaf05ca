package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("SYNC_INTERVAL", "15m")
	t.Setenv("SYNC_ON_STARTUP", "true")
	t.Setenv("FLOWISE_TIMEOUT", "45")
	t.Setenv("UPLOAD_ALLOWED_MIMES", "image/png, application/pdf ,")
	t.Setenv("FLOWISE_MAX_EVENT_BYTES", "4096")

	cfg := Load()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, 15*time.Minute, cfg.Sync.Interval)
	assert.True(t, cfg.Sync.OnStartup)
	assert.False(t, cfg.Sync.GuardEmptyCatalog)
	assert.Equal(t, 45*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, 4096, cfg.Provider.MaxEventBytes)
	assert.Equal(t, []string{"image/png", "application/pdf"}, cfg.Upload.AllowedMimes)
}

func TestLoadFallsBackOnGarbage(t *testing.T) {
	t.Setenv("SYNC_INTERVAL", "soon")
	t.Setenv("FLOWISE_MAX_RETRIES", "many")
	t.Setenv("SYNC_GUARD_EMPTY_CATALOG", "maybe")

	cfg := Load()

	assert.Equal(t, time.Duration(0), cfg.Sync.Interval)
	assert.Equal(t, 3, cfg.Provider.MaxRetries)
	assert.False(t, cfg.Sync.GuardEmptyCatalog)
}
