package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "")
	t.Setenv("CONTENT_CONFIG_FILE", "")
	t.Setenv("LLM_FALLBACK_PROVIDER", "")
	t.Setenv("GENERATION_CACHE_TTL_SECONDS", "")
	t.Setenv("OPENAI_MODEL", "")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.PrimaryProvider)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	_, ok := cfg.OpenAI.Prices.Lookup("gpt-4o-mini-2024-07-18")
	assert.True(t, ok)
}

func TestLoadConfigOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
primary_provider: google
fallback_provider: openai
allowed_origins: ["https://editor.example.org"]
cache:
  enabled: false
  ttl: 90m
gemini:
  model: gemini-2.5-pro
  max_retries: 1
prices:
  my-local-model:
    input_per_mtok: 1
    output_per_mtok: 2
`), 0o600))
	t.Setenv("CONTENT_CONFIG_FILE", path)
	t.Setenv("LLM_PROVIDER", "openai")

	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, "google", cfg.PrimaryProvider)
	assert.Equal(t, "openai", cfg.FallbackProvider)
	assert.Equal(t, []string{"https://editor.example.org"}, cfg.AllowedOrigins)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, 90*time.Minute, cfg.CacheTTL)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 1, cfg.Gemini.MaxRetries)

	p, ok := cfg.Gemini.Prices.Lookup("my-local-model")
	require.True(t, ok)
	assert.Equal(t, 2.0, p.OutputPerMTok)
	_, ok = cfg.Gemini.Prices.Lookup("gpt-4o")
	assert.True(t, ok)
}

func TestLoadConfigRejectsBadProviders(t *testing.T) {
	t.Setenv("CONTENT_CONFIG_FILE", "")
	t.Setenv("LLM_FALLBACK_PROVIDER", "")
	t.Setenv("LLM_PROVIDER", "anthropic")
	_, err := LoadConfig(nil)
	assert.Error(t, err)

	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("LLM_FALLBACK_PROVIDER", "openai")
	_, err = LoadConfig(nil)
	assert.Error(t, err)
}
