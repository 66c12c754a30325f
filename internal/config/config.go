package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the bot reads from the environment. main loads
// .env via godotenv before calling Load, so plain env vars are the single
// source of truth.
type Config struct {
	// HTTP server
	Port string

	// Slack
	SlackBotToken      string
	SlackSigningSecret string

	// Postgres
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     int

	// Embedding service
	EmbeddingProvider string // "gateway" (default) or "openai"
	EmbeddingURL      string
	EmbeddingToken    string
	EmbeddingDim      int
	OpenAIAPIKey      string
	RetryCount        int
	RetryWait         time.Duration

	// Optional redis cache for embeddings
	RedisAddr     string
	RedisPassword string

	// Per-event budget before the pipeline gives up and degrades
	EventTimeout time.Duration
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8080"),

		SlackBotToken:      os.Getenv("SLACK_BOT_TOKEN"),
		SlackSigningSecret: os.Getenv("SLACK_SIGNING_SECRET"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     getEnv("DB_NAME", "emoji_bot"),
		DBPort:     getEnvInt("DB_PORT", 5432),

		EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "gateway"),
		EmbeddingURL:      os.Getenv("EMBEDDING_URL"),
		EmbeddingToken:    os.Getenv("EMBEDDING_TOKEN"),
		EmbeddingDim:      getEnvInt("EMBEDDING_DIM", 1024),
		OpenAIAPIKey:      os.Getenv("OPENAI_API_KEY"),
		RetryCount:        getEnvInt("EMBEDDING_RETRY_COUNT", 2),
		RetryWait:         getEnvDuration("EMBEDDING_RETRY_WAIT", 5*time.Second),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		EventTimeout: getEnvDuration("EVENT_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
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
