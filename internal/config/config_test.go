package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigMethods(t *testing.T) {
	t.Run("Addr returns formatted port", func(t *testing.T) {
		cfg := &Config{Port: 3000}
		assert.Equal(t, ":3000", cfg.Addr())
	})
}

func TestValidate(t *testing.T) {
	t.Run("accepts empty suggestion url", func(t *testing.T) {
		cfg := &Config{SuggestionTimeoutMS: 8000, RateLimitPerMin: 60}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("rejects malformed suggestion url", func(t *testing.T) {
		cfg := &Config{SuggestionURL: "not a url", SuggestionTimeoutMS: 8000, RateLimitPerMin: 60}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive timeout", func(t *testing.T) {
		cfg := &Config{SuggestionTimeoutMS: 0, RateLimitPerMin: 60}
		assert.Error(t, cfg.Validate())
	})

	t.Run("rejects non-positive rate limit", func(t *testing.T) {
		cfg := &Config{SuggestionTimeoutMS: 8000, RateLimitPerMin: 0}
		assert.Error(t, cfg.Validate())
	})
}

func TestLoad(t *testing.T) {
	originalEnv := map[string]string{
		"PORT":                  os.Getenv("PORT"),
		"DATABASE_URL":          os.Getenv("DATABASE_URL"),
		"REDIS_URL":             os.Getenv("REDIS_URL"),
		"SUGGESTION_URL":        os.Getenv("SUGGESTION_URL"),
		"SUGGESTION_TIMEOUT_MS": os.Getenv("SUGGESTION_TIMEOUT_MS"),
		"RATE_LIMIT_PER_MIN":    os.Getenv("RATE_LIMIT_PER_MIN"),
		"LOG_LEVEL":             os.Getenv("LOG_LEVEL"),
	}

	defer func() {
		for k, v := range originalEnv {
			if v == "" {
				os.Unsetenv(k)
			} else {
				os.Setenv(k, v)
			}
		}
	}()

	t.Run("loads config with defaults", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Unsetenv("PORT")
		os.Unsetenv("SUGGESTION_URL")
		os.Unsetenv("SUGGESTION_TIMEOUT_MS")
		os.Unsetenv("RATE_LIMIT_PER_MIN")
		os.Unsetenv("LOG_LEVEL")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 8080, cfg.Port)
		assert.Equal(t, "postgres://localhost/test", cfg.DatabaseURL)
		assert.Equal(t, "redis://localhost:6379", cfg.RedisURL)
		assert.Equal(t, 8000, cfg.SuggestionTimeoutMS)
		assert.Equal(t, 60, cfg.RateLimitPerMin)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("loads custom values", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Setenv("REDIS_URL", "redis://localhost:6379")
		os.Setenv("PORT", "3000")
		os.Setenv("SUGGESTION_URL", "https://suggest.example.com/v1")
		os.Setenv("LOG_LEVEL", "debug")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, 3000, cfg.Port)
		assert.Equal(t, "https://suggest.example.com/v1", cfg.SuggestionURL)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("fails without required DATABASE_URL", func(t *testing.T) {
		os.Unsetenv("DATABASE_URL")
		os.Setenv("REDIS_URL", "redis://localhost:6379")

		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("fails without required REDIS_URL", func(t *testing.T) {
		os.Setenv("DATABASE_URL", "postgres://localhost/test")
		os.Unsetenv("REDIS_URL")

		_, err := Load()
		assert.Error(t, err)
	})
}
