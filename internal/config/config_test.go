package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 4, cfg.Batch.MaxConcurrentURLs)
	assert.Equal(t, []string{"tesseract"}, cfg.OCR.Engines)
	assert.Equal(t, 3, cfg.Inference.MaxAttempts)
	assert.Equal(t, 500, cfg.Inference.BackoffMs)
	assert.Equal(t, 50, cfg.Acquire.MinContentChars)
	assert.Empty(t, cfg.Store.Driver, "persistence is opt-in")
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PAGELENS_SERVER_PORT", "9090")
	t.Setenv("PAGELENS_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	assert.Error(t, InitLogger(LogConfig{Level: "not-a-level"}))
}
