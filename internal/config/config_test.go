package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 500, cfg.Batch.Size)
	assert.Equal(t, 3, cfg.Images.PerPano)
	assert.Equal(t, 400, cfg.Images.Size)
	assert.Equal(t, 500, cfg.Concurrency)
	assert.Equal(t, 20.0, cfg.Sampler.MinDist)
	assert.True(t, cfg.Segment)
	assert.Len(t, cfg.GreenMonths, 12)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "https://maps.googleapis.com/maps/api", cfg.API.BaseURL)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("GREENVIEW_API_KEY", "env-key")
	t.Setenv("GREENVIEW_BATCH_SIZE", "100")
	t.Setenv("GREENVIEW_SEGMENTATION", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.API.Key)
	assert.Equal(t, 100, cfg.Batch.Size)
	assert.False(t, cfg.Segment)
}

func TestRequireCredentials(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireCredentials())

	cfg.API.Key = "k"
	assert.NoError(t, cfg.RequireCredentials())
}

func TestYAMLRedactsCredentials(t *testing.T) {
	cfg := &Config{}
	cfg.API.Key = "secret-key"
	cfg.API.Secret = "signing-secret"

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret-key")
	assert.NotContains(t, string(out), "signing-secret")
	assert.Contains(t, string(out), "***")
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "nope", Format: "json"}))
}
