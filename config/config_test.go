package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9095", cfg.HTTPAddr)
	assert.Equal(t, "data/bars.db", cfg.SQLitePath)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.True(t, cfg.CacheEnabled)
	assert.Equal(t, 10*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 5000, cfg.MaxBars)
	assert.Equal(t, "SMA:20,EMA:9,RSI:14,BOLLINGER:20", cfg.DefaultIndicators)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("INDENGINE_HTTP_ADDR", ":8080")
	t.Setenv("INDENGINE_CACHE_ENABLED", "false")
	t.Setenv("INDENGINE_CACHE_TTL", "30s")
	t.Setenv("INDENGINE_WORKERS", "8")
	t.Setenv("INDENGINE_DEFAULT_INDICATORS", "MACD")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, 30*time.Second, cfg.CacheTTL)
	assert.Equal(t, 8, cfg.Workers)
	assert.Equal(t, "MACD", cfg.DefaultIndicators)
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("INDENGINE_WORKERS", "0")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("INDENGINE_WORKERS", "not-a-number")
	_, err = Load()
	assert.Error(t, err)
}
