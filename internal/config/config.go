package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ProviderConfig identifies one external data source. Providers share one
// client implementation and differ only in base address and credential.
type ProviderConfig struct {
	Name    string
	BaseURL string
	APIKey  string
}

// Config holds all application configuration
type Config struct {
	DatabaseURL        string
	ArtifactDir        string
	HTTPAddr           string
	RedisURL           string
	PredictionsChannel string
	TelegramToken      string
	TelegramChatID     int64
	Providers          []ProviderConfig
	ProviderTimeout    int // seconds, per-provider budget inside the aggregator
	RequestTimeout     int // seconds, outbound HTTP timeout
	RequestsPerSec     int
	MaxRetryTimeout    int // seconds, backoff budget per request
	TestFraction       float64
	CVFolds            int
	Seed               int64
	LogLevel           string
}

// defaultBaseURLs covers the known providers; any of them can be overridden
// with <NAME>_BASE_URL.
var defaultBaseURLs = map[string]string{
	"sportsradar": "https://api.sportsradar.com/v1",
	"onexbet":     "https://api.1xbet.com/v1",
	"sportybet":   "https://api.sportybet.com/v1",
	"sofascore":   "https://api.sofascore.com/v1",
	"flashscore":  "https://api.flashscore.com/v1",
	"bet365":      "https://api.bet365.com/v1",
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	cfg := &Config{
		DatabaseURL:        getEnvWithDefault("DATABASE_URL", "postgres://localhost:5432/predictor?sslmode=disable"),
		ArtifactDir:        getEnvWithDefault("ARTIFACT_DIR", "artifacts"),
		HTTPAddr:           getEnvWithDefault("HTTP_ADDR", ":8080"),
		RedisURL:           os.Getenv("REDIS_URL"),
		PredictionsChannel: getEnvWithDefault("PREDICTIONS_CHANNEL", "predictor:predictions"),
		TelegramToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:     getEnvInt64WithDefault("TELEGRAM_CHAT_ID", 0),
		ProviderTimeout:    getEnvIntWithDefault("PROVIDER_TIMEOUT", 10),
		RequestTimeout:     getEnvIntWithDefault("REQUEST_TIMEOUT", 30),
		RequestsPerSec:     getEnvIntWithDefault("REQUESTS_PER_SEC", 5),
		MaxRetryTimeout:    getEnvIntWithDefault("MAX_RETRY_TIMEOUT", 30),
		TestFraction:       getEnvFloatWithDefault("TEST_FRACTION", 0.2),
		CVFolds:            getEnvIntWithDefault("CV_FOLDS", 5),
		Seed:               getEnvInt64WithDefault("RANDOM_SEED", 42),
		LogLevel:           getEnvWithDefault("LOG_LEVEL", "info"),
	}

	providers, err := loadProviders()
	if err != nil {
		return nil, err
	}
	cfg.Providers = providers

	return cfg, nil
}

// loadProviders reads the PROVIDERS list and per-provider overrides.
// Unknown provider names require an explicit <NAME>_BASE_URL.
func loadProviders() ([]ProviderConfig, error) {
	names := getEnvWithDefault("PROVIDERS", "sportsradar,onexbet,sofascore")

	var providers []ProviderConfig
	for _, name := range strings.Split(names, ",") {
		name = strings.TrimSpace(strings.ToLower(name))
		if name == "" {
			continue
		}

		prefix := envPrefix(name)
		baseURL := getEnvWithDefault(prefix+"_BASE_URL", defaultBaseURLs[name])
		if baseURL == "" {
			return nil, fmt.Errorf("provider %q: no default base URL, set %s_BASE_URL", name, prefix)
		}

		providers = append(providers, ProviderConfig{
			Name:    name,
			BaseURL: baseURL,
			APIKey:  os.Getenv(prefix + "_API_KEY"),
		})
	}

	return providers, nil
}

func envPrefix(name string) string {
	return strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
