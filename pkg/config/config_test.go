package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, 8000, cfg.Port)
	assert.Equal(t, "gpt-4o-mini", cfg.ChatModel)
	assert.Equal(t, "text-embedding-3-small", cfg.EmbeddingModel)
	assert.Equal(t, 1536, cfg.VectorDimensions)
	assert.Equal(t, 10, cfg.IngestBatchSize)
	assert.Equal(t, 30*time.Second, cfg.ProcessingInterval)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, "football-news", cfg.IndexName)
	assert.Equal(t, "articles", cfg.Namespace)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("VECTOR_BATCH_SIZE", "25")
	t.Setenv("VECTOR_PROCESSING_INTERVAL", "5")
	t.Setenv("ADMIN_TOKEN", "secret")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 25, cfg.IngestBatchSize)
	assert.Equal(t, 5*time.Second, cfg.ProcessingInterval)
	assert.Equal(t, "secret", cfg.AdminToken)
}

func TestLoadFromEnv_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := LoadFromEnv()
	assert.Error(t, err)
}
