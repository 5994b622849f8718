// Package config holds application-level settings loaded from the
// environment. Store-specific settings (Postgres, Redis, Qdrant) live with
// their respective clients.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the top-level application configuration.
type Config struct {
	// HTTP server bind address.
	Host string
	Port int

	// AdminToken guards the admin API. Empty disables admin routes.
	AdminToken string

	// OpenAI settings shared by the chat orchestrator and the embedder.
	OpenAIAPIKey   string
	ChatModel      string
	EmbeddingModel string

	// Vector ingestion worker settings.
	VectorDimensions   int
	IngestBatchSize    int
	ProcessingInterval time.Duration
	MaxRetries         int

	// Vector index collection name and payload namespace.
	IndexName string
	Namespace string

	// Fantasy Premier League public API base URL.
	FPLBaseURL string
}

// LoadFromEnv loads configuration from environment variables, applying
// defaults for everything except credentials.
func LoadFromEnv() (Config, error) {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8000"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PORT: %w", err)
	}

	dims, err := strconv.Atoi(getEnvOrDefault("VECTOR_DIMENSIONS", "1536"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid VECTOR_DIMENSIONS: %w", err)
	}

	batchSize, _ := strconv.Atoi(getEnvOrDefault("VECTOR_BATCH_SIZE", "10"))
	intervalSecs, _ := strconv.Atoi(getEnvOrDefault("VECTOR_PROCESSING_INTERVAL", "30"))
	maxRetries, _ := strconv.Atoi(getEnvOrDefault("VECTOR_MAX_RETRIES", "3"))

	return Config{
		Host:               getEnvOrDefault("HOST", "0.0.0.0"),
		Port:               port,
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		ChatModel:          getEnvOrDefault("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		EmbeddingModel:     getEnvOrDefault("OPENAI_MODEL", "text-embedding-3-small"),
		VectorDimensions:   dims,
		IngestBatchSize:    batchSize,
		ProcessingInterval: time.Duration(intervalSecs) * time.Second,
		MaxRetries:         maxRetries,
		IndexName:          getEnvOrDefault("VECTOR_INDEX_NAME", "football-news"),
		Namespace:          getEnvOrDefault("VECTOR_NAMESPACE", "articles"),
		FPLBaseURL:         getEnvOrDefault("FPL_BASE_URL", "https://fantasy.premierleague.com/api"),
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
