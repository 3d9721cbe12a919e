package config

import (
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Port                int    `env:"PORT" envDefault:"8080"`
	DatabaseURL         string `env:"DATABASE_URL,required"`
	RedisURL            string `env:"REDIS_URL,required"`
	SuggestionURL       string `env:"SUGGESTION_URL"`
	SuggestionTimeoutMS int    `env:"SUGGESTION_TIMEOUT_MS" envDefault:"8000"`
	RateLimitPerMin     int    `env:"RATE_LIMIT_PER_MIN" envDefault:"60"`
	LogLevel            string `env:"LOG_LEVEL" envDefault:"info"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) Validate() error {
	if c.SuggestionURL != "" {
		if _, err := url.ParseRequestURI(c.SuggestionURL); err != nil {
			return fmt.Errorf("SUGGESTION_URL is not a valid URL: %w", err)
		}
	}
	if c.SuggestionTimeoutMS <= 0 {
		return fmt.Errorf("SUGGESTION_TIMEOUT_MS must be positive")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must be positive")
	}
	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
