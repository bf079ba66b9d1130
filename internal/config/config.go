package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Generative AI
	GoogleAPIKey        string
	GeminiModel         string
	ClassifierMaxTokens int

	// External services
	CategorizerURL string // Gradio space base URL (POST /run/predict)
	MarketAPIURL   string // Yahoo chart API base

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	MarketCacheTTL  time.Duration
	MetricsCacheTTL time.Duration

	// Analytics
	ForecastWindowDays int

	// Observability
	OTLPEndpoint string

	// Workspace
	DefaultProject string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		GoogleAPIKey:        getEnv("GOOGLE_API_KEY", ""),
		GeminiModel:         getEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		ClassifierMaxTokens: getEnvInt("CLASSIFIER_MAX_TOKENS", 20),

		CategorizerURL: strings.TrimRight(getEnv("CATEGORIZER_URL", ""), "/"),
		MarketAPIURL:   strings.TrimRight(getEnv("MARKET_API_URL", "https://query1.finance.yahoo.com"), "/"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 0),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 4),

		MarketCacheTTL:  getEnvDuration("MARKET_CACHE_TTL", 5*time.Minute),
		MetricsCacheTTL: getEnvDuration("METRICS_CACHE_TTL", time.Minute),

		ForecastWindowDays: getEnvInt("FORECAST_WINDOW_DAYS", 30),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		DefaultProject: getEnv("DEFAULT_PROJECT", "Default"),
	}
}

// Validate reports configuration values the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.HTTPTimeout <= 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be positive"))
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}
	if c.InitialBackoff < 0 || c.MarketCacheTTL < 0 || c.MetricsCacheTTL < 0 {
		errs = append(errs, errors.New("durations must not be negative"))
	}
	if c.ClassifierMaxTokens <= 0 {
		errs = append(errs, errors.New("CLASSIFIER_MAX_TOKENS must be positive"))
	}
	if c.ForecastWindowDays <= 0 {
		errs = append(errs, errors.New("FORECAST_WINDOW_DAYS must be positive"))
	}
	if strings.TrimSpace(c.DefaultProject) == "" {
		errs = append(errs, errors.New("DEFAULT_PROJECT must not be empty"))
	}
	return errors.Join(errs...)
}

// AIEnabled reports whether a generative backend is configured.
func (c *Config) AIEnabled() bool {
	return c.GoogleAPIKey != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
