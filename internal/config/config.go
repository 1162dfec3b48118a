// Package config provides environment configuration for the consultant server.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string        `env:"PORT" envDefault:"8080"`
	ServerReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	ServerWriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"180s"`

	Session   SessionConfig   `envPrefix:"SESSION_"`
	Materials MaterialsConfig `envPrefix:"MATERIALS_"`
	LLM       LLMConfig       `envPrefix:"LLM_"`
	Cache     CacheConfig     `envPrefix:"CACHE_"`

	// Provider credentials
	AnthropicAPIKey string `env:"ANTHROPIC_API_KEY"`
	OpenAIAPIKey    string `env:"OPENAI_API_KEY"`

	// OpenAI-compatible gateway; the public endpoint is used when empty.
	OpenAIBaseURL string `env:"OPENAI_BASE_URL"`

	// Optional persona override; the built-in consultant persona is used when empty.
	PersonaFile string `env:"PERSONA_FILE"`

	// Include the provider error in the apology shown to the user.
	ApologyIncludeError bool `env:"APOLOGY_INCLUDE_ERROR" envDefault:"false"`

	// Delay between runes of the typing reveal; zero sends the whole reply at once.
	TypingDelay time.Duration `env:"TYPING_DELAY" envDefault:"10ms"`

	// Redis, only used by the redis cache driver
	RedisURL string `env:"REDIS_URL"`

	// NATS, interaction events are published when set
	NATSURL   string `env:"NATS_URL"`
	NATSToken string `env:"NATS_TOKEN"`

	// Rate limiting
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"30"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Tracing
	TracingEndpoint string `env:"TRACING_ENDPOINT" envDefault:"localhost:4318"`
	TracingEnabled  bool   `env:"TRACING_ENABLED" envDefault:"false"`
}

// SessionConfig configures browser sessions.
type SessionConfig struct {
	Secret       string        `env:"SECRET" envDefault:"development-secret-change-in-production"`
	IdleTimeout  time.Duration `env:"IDLE_TIMEOUT" envDefault:"2h"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"consultor_session"`
	CookieSecure bool          `env:"COOKIE_SECURE" envDefault:"false"`
}

// MaterialsConfig configures the reference material folder.
type MaterialsConfig struct {
	Dir string `env:"DIR" envDefault:"materiais"`
}

// LLMConfig configures the model provider.
type LLMConfig struct {
	Provider      string        `env:"PROVIDER" envDefault:"anthropic"`
	Model         string        `env:"MODEL"`
	Temperature   float64       `env:"TEMPERATURE" envDefault:"0.3"`
	MaxTokens     int           `env:"MAX_TOKENS" envDefault:"4096"`
	RetryAttempts uint          `env:"RETRY_ATTEMPTS" envDefault:"1"`
	RetryDelay    time.Duration `env:"RETRY_DELAY" envDefault:"500ms"`
	RetryMaxDelay time.Duration `env:"RETRY_MAX_DELAY" envDefault:"5s"`
}

// CacheConfig configures the per-session response cache.
type CacheConfig struct {
	Driver     string        `env:"DRIVER" envDefault:"memory"`
	TTL        time.Duration `env:"TTL" envDefault:"1h"`
	MaxEntries int           `env:"MAX_ENTRIES" envDefault:"500"`
}

// APIKey returns the credential for the configured provider.
func (c *Config) APIKey() string {
	switch strings.ToLower(c.LLM.Provider) {
	case "openai":
		return c.OpenAIAPIKey
	default:
		return c.AnthropicAPIKey
	}
}

// Load reads an optional env file and then the process environment.
// An empty envName reads ".env".
func Load(envName string) (*Config, error) {
	envFile := envFileName(envName)
	// Missing files are fine; variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error

	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic", "openai":
	default:
		errs = append(errs, fmt.Errorf("LLM_PROVIDER must be anthropic or openai, got %q", c.LLM.Provider))
	}

	if c.APIKey() == "" {
		errs = append(errs, fmt.Errorf("no API key configured for provider %q", c.LLM.Provider))
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("LLM_TEMPERATURE must be between 0 and 2, got %v", c.LLM.Temperature))
	}

	if c.LLM.RetryAttempts < 1 {
		errs = append(errs, errors.New("LLM_RETRY_ATTEMPTS must be at least 1"))
	}

	switch c.Cache.Driver {
	case "memory":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis cache driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("CACHE_DRIVER must be memory or redis, got %q", c.Cache.Driver))
	}

	if c.Cache.MaxEntries < 1 {
		errs = append(errs, fmt.Errorf("CACHE_MAX_ENTRIES must be positive, got %d", c.Cache.MaxEntries))
	}

	if c.Session.Secret == "" {
		errs = append(errs, errors.New("SESSION_SECRET cannot be empty"))
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.LogFormat))
	}

	if c.RateLimitRequests < 1 {
		errs = append(errs, fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.RateLimitRequests))
	}

	return errors.Join(errs...)
}

func envFileName(name string) string {
	switch name {
	case "":
		return ".env"
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return ".env." + name
	}
}
