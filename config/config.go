// Package config loads the onboarding server configuration from the
// environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/tbxark/onboard/agent"
	"github.com/tbxark/onboard/nhtsa"
	"github.com/tbxark/onboard/quote"
)

const DefaultOpenAIModel = "gpt-4o-mini"

var validate = validator.New()

type Config struct {
	Port     string `validate:"required,numeric"`
	DBPath   string `validate:"required"`
	LogLevel string `validate:"oneof=debug info warn error"`

	OpenAIAPIKey  string
	OpenAIBaseURL string `validate:"omitempty,url"`
	OpenAIModel   string `validate:"required"`

	NHTSABaseURL  string        `validate:"required,url"`
	QuoteURL      string        `validate:"omitempty,url"`
	LookupTimeout time.Duration `validate:"gt=0"`
	MakesCacheTTL time.Duration `validate:"gt=0"`

	HistoryLimit   int `validate:"gte=1,lte=100"`
	FrustrationLLM bool
}

// Load reads configuration from environment variables. Call godotenv.Load
// first to pick up a .env file.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		DBPath:         getEnv("DB_PATH", "./data/onboard.db"),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:  getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", DefaultOpenAIModel),
		NHTSABaseURL:   getEnv("NHTSA_BASE_URL", nhtsa.DefaultBaseURL),
		QuoteURL:       getEnv("QUOTE_URL", quote.DefaultZenQuotesURL),
		LookupTimeout:  getEnvDuration("LOOKUP_TIMEOUT", 10*time.Second),
		MakesCacheTTL:  getEnvDuration("MAKES_CACHE_TTL", 24*time.Hour),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", agent.DefaultHistoryLimit),
		FrustrationLLM: getEnvBool("FRUSTRATION_LLM", false),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.FrustrationLLM && c.OpenAIAPIKey == "" {
		return fmt.Errorf("FRUSTRATION_LLM requires OPENAI_API_KEY")
	}
	return nil
}

// LLMEnabled reports whether a chat model can be built.
func (c *Config) LLMEnabled() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) Addr() string {
	return ":" + c.Port
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("30s") and bare seconds ("30").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if n, err := strconv.Atoi(value); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
