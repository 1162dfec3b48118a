package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "anthropic", cfg.LLM.Provider)
	assert.Equal(t, 0.3, cfg.LLM.Temperature)
	assert.Equal(t, uint(1), cfg.LLM.RetryAttempts)
	assert.Equal(t, "materiais", cfg.Materials.Dir)
	assert.Equal(t, "memory", cfg.Cache.Driver)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.MaxEntries)
	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTimeout)
	assert.Equal(t, 10*time.Millisecond, cfg.TypingDelay)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "test-key", cfg.APIKey())
}

func TestLoad_PrefixedGroups(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("LLM_MODEL", "gpt-4o-mini")
	t.Setenv("CACHE_TTL", "5m")
	t.Setenv("MATERIALS_DIR", "/srv/materiais")
	t.Setenv("SESSION_IDLE_TIMEOUT", "30m")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.APIKey())
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, "/srv/materiais", cfg.Materials.Dir)
	assert.Equal(t, 30*time.Minute, cfg.Session.IdleTimeout)
}

func TestLoad_MissingCredentialsIsFatal(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no API key")
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{
		LLM:               LLMConfig{Provider: "gemini", Temperature: 3},
		Cache:             CacheConfig{Driver: "redis", MaxEntries: 0},
		Session:           SessionConfig{},
		RateLimitRequests: 0,
	}

	err := cfg.Validate()
	require.Error(t, err)

	msg := err.Error()
	for _, want := range []string{
		"LLM_PROVIDER",
		"no API key",
		"LLM_TEMPERATURE",
		"LLM_RETRY_ATTEMPTS",
		"REDIS_URL",
		"CACHE_MAX_ENTRIES",
		"SESSION_SECRET",
		"RATE_LIMIT_REQUESTS",
		"LOG_FORMAT",
	} {
		assert.Contains(t, msg, want)
	}
}

func TestEnvFileName(t *testing.T) {
	assert.Equal(t, ".env", envFileName(""))
	assert.Equal(t, ".env.prod", envFileName("production"))
	assert.Equal(t, ".env.local", envFileName("dev"))
	assert.Equal(t, ".env.staging", envFileName("staging"))
}
