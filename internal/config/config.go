package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"manejobot/internal/models"
)

// Config holds every runtime setting, loaded once at startup.
type Config struct {
	Port        string
	Environment string

	DatabaseURL string
	MongoURL    string
	MongoDB     string
	RedisURL    string

	BackendsFile    string
	RulesFile       string
	RequestTimeout  time.Duration
	BreakerCooldown time.Duration

	RateLimitPerMinute int
	MetricsEnabled     bool
}

// Load reads configuration from the environment with sane defaults.
func Load() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),

		DatabaseURL: getEnv("DATABASE_URL", "manejobot:manejobot@tcp(localhost:3306)/manejobot?parseTime=true"),
		MongoURL:    getEnv("MONGO_URL", "mongodb://localhost:27017"),
		MongoDB:     getEnv("MONGO_DB", "manejobot"),
		RedisURL:    getEnv("REDIS_URL", ""),

		BackendsFile:    getEnv("BACKENDS_FILE", "backends.json"),
		RulesFile:       getEnv("RULES_FILE", ""),
		RequestTimeout:  getTimeEnv("REQUEST_TIMEOUT", 30*time.Second),
		BreakerCooldown: getTimeEnv("BREAKER_COOLDOWN", 600*time.Second),

		RateLimitPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 20),
		MetricsEnabled:     getBoolEnv("METRICS_ENABLED", true),
	}
}

// LoadBackends reads the ranked backend list from the JSON file.
func LoadBackends(path string) ([]models.Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("erro ao ler %s: %w", path, err)
	}
	var cfg models.BackendsConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("erro ao interpretar %s: %w", path, err)
	}
	if len(cfg.Backends) == 0 {
		return nil, fmt.Errorf("%s não define nenhum backend", path)
	}
	return cfg.Backends, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getIntEnv(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getTimeEnv(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}
