package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecret(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:5000", cfg.Server.Addr())
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	assert.Equal(t, 30*24*time.Hour, cfg.JWT.RememberExpiry())
	assert.Equal(t, time.Hour, cfg.Processing.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Sheets.CacheTTL)
	assert.False(t, cfg.Email.Enabled())
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)
}

func TestLoadOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("API_PORT", "8080")
	t.Setenv("PROCESS_INTERVAL", "0s")
	t.Setenv("PROCESS_WORKERS", "0")
	t.Setenv("CORS_ORIGINS", " https://a.example , ,https://b.example")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Zero(t, cfg.Processing.Interval)
	assert.Equal(t, 1, cfg.Processing.Workers)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("API_PORT", "http")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "API_PORT")
}
