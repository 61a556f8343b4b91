package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresBrapiToken(t *testing.T) {
	t.Setenv("BRAPI_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BRAPI_TOKEN")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BRAPI_TOKEN", "test-token")
	t.Setenv("ENV", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Brapi.Token)
	assert.Equal(t, "https://brapi.dev", cfg.Brapi.BaseURL)
	assert.Equal(t, 6*time.Hour, cfg.BCB.TTL)
	assert.Equal(t, 24*time.Hour, cfg.CVM.TTL)
	assert.Equal(t, 20*time.Second, cfg.Bridge.Timeout)
	assert.Equal(t, "python3", cfg.Bridge.Interpreter)
	assert.NotEmpty(t, cfg.CacheDir)
}

func TestLoad_RejectsUnknownEnv(t *testing.T) {
	t.Setenv("BRAPI_TOKEN", "test-token")
	t.Setenv("ENV", "sandbox")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENV")
}

func TestGetEnvAsDuration_FallsBackOnGarbage(t *testing.T) {
	t.Setenv("BCB_CACHE_TTL", "not-a-duration")

	assert.Equal(t, 6*time.Hour, getEnvAsDuration("BCB_CACHE_TTL", "6h"))
}
