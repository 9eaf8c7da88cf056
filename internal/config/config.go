// internal/config/config.go
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Port        string
	Environment string

	InngestEventKey   string
	InngestSigningKey string

	// Provider credentials
	PerplexityAPIKey string
	GeminiAPIKey     string
	OpenAIAPIKey     string
	AnthropicAPIKey  string

	// Model selection
	PerplexityModel string
	GeminiModel     string
	OpenAIModel     string
	AnthropicModel  string
	JudgeBackend    string // "gemini" or "openai"
	JudgeModel      string

	// Pipeline tuning
	ActiveProviders      []string
	MaxWorkers           int
	BatchSize            int
	MaxRetries           int
	RequestTimeoutSec    int
	TaskTimeoutSec       int
	RetryCeiling         int
	FailureRateThreshold float64
	FailedAttemptsPath   string

	DatabaseURL string
	Database    DatabaseConfig
}

// DatabaseConfig holds the connection settings for the tabular store.
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

func Load() *Config {
	config := &Config{
		Port:              getEnv("PORT", "8000"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		InngestEventKey:   os.Getenv("INNGEST_EVENT_KEY"),
		InngestSigningKey: os.Getenv("INNGEST_SIGNING_KEY"),

		PerplexityAPIKey: os.Getenv("PERPLEXITY_API_KEY"),
		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),

		PerplexityModel: getEnv("PERPLEXITY_MODEL", "sonar"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4.1"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		JudgeBackend:    getEnv("JUDGE_BACKEND", "gemini"),
		JudgeModel:      getEnv("JUDGE_MODEL", "gemini-2.5-flash"),

		ActiveProviders:      splitList(getEnv("ACTIVE_PROVIDERS", "perplexity,gemini")),
		MaxWorkers:           getEnvInt("MAX_WORKERS", 3),
		BatchSize:            getEnvInt("BATCH_SIZE", 30),
		MaxRetries:           getEnvInt("MAX_RETRIES", 4),
		RequestTimeoutSec:    getEnvInt("REQUEST_TIMEOUT_SEC", 120),
		TaskTimeoutSec:       getEnvInt("TASK_TIMEOUT_SEC", 180),
		RetryCeiling:         getEnvInt("RETRY_CEILING", 10),
		FailureRateThreshold: getEnvFloat("FAILURE_RATE_THRESHOLD", 0.3),
		FailedAttemptsPath:   getEnv("FAILED_ATTEMPTS_PATH", "data/failed_queries.json"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
	}

	// Parse database configuration
	dbConfig, err := parseDatabaseConfig()
	if err != nil {
		// If DATABASE_URL parsing fails, try individual env vars as fallback
		dbConfig = DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "aeotrack"),
			SSLMode:         getEnv("DB_SSLMODE", "require"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
		}
	}
	config.Database = dbConfig

	return config
}

func parseDatabaseConfig() (DatabaseConfig, error) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return DatabaseConfig{}, fmt.Errorf("DATABASE_URL not set")
	}

	parsedURL, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, fmt.Errorf("invalid DATABASE_URL: %w", err)
	}

	config := DatabaseConfig{
		Host:            parsedURL.Hostname(),
		Port:            5432, // default
		User:            parsedURL.User.Username(),
		Name:            strings.TrimPrefix(parsedURL.Path, "/"),
		SSLMode:         getEnv("DB_SSLMODE", "require"),
		MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 25),
		ConnMaxLifetime: getEnvInt("DB_CONN_MAX_LIFETIME", 300),
	}

	if password, ok := parsedURL.User.Password(); ok {
		config.Password = password
	}

	if parsedURL.Port() != "" {
		if port, err := strconv.Atoi(parsedURL.Port()); err == nil {
			config.Port = port
		}
	}

	return config, nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}
