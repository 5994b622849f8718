// Pitchwire server — football news intelligence with conversational chat,
// semantic search, and background vector ingestion.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pitchwire/pitchwire/pkg/api"
	"github.com/pitchwire/pitchwire/pkg/config"
	"github.com/pitchwire/pitchwire/pkg/embedding"
	"github.com/pitchwire/pitchwire/pkg/ingest"
	"github.com/pitchwire/pitchwire/pkg/kvstore"
	"github.com/pitchwire/pitchwire/pkg/llm"
	"github.com/pitchwire/pitchwire/pkg/llmcache"
	"github.com/pitchwire/pitchwire/pkg/memory"
	"github.com/pitchwire/pitchwire/pkg/orchestrator"
	"github.com/pitchwire/pitchwire/pkg/ratelimit"
	"github.com/pitchwire/pitchwire/pkg/search"
	"github.com/pitchwire/pitchwire/pkg/store"
	"github.com/pitchwire/pitchwire/pkg/tools"
	"github.com/pitchwire/pitchwire/pkg/vectorindex"
)

func main() {
	envPath := flag.String("env-file", ".env", "Path to .env file")
	flag.Parse()

	if err := godotenv.Load(*envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", *envPath, "error", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx := context.Background()

	// 1. Configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.Info("Starting pitchwire", "host", cfg.Host, "port", cfg.Port)

	// 2. PostgreSQL
	dbConfig, err := store.LoadConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}
	dbClient, err := store.NewClient(ctx, dbConfig)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logger.Error("Error closing database client", "error", err)
		}
	}()
	logger.Info("Connected to PostgreSQL database")

	// 3. Redis
	redisConfig, err := kvstore.LoadRedisConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load Redis config", "error", err)
		os.Exit(1)
	}
	redisStore, err := kvstore.NewRedisStore(ctx, redisConfig)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisStore.Close(); err != nil {
			logger.Error("Error closing Redis client", "error", err)
		}
	}()
	logger.Info("Connected to Redis")

	// 4. Qdrant vector index
	qdrantConfig, err := vectorindex.LoadQdrantConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load Qdrant config", "error", err)
		os.Exit(1)
	}
	index, err := vectorindex.NewQdrantIndex(ctx, qdrantConfig, cfg.IndexName, cfg.Namespace, cfg.VectorDimensions)
	if err != nil {
		logger.Error("Failed to connect to Qdrant", "error", err)
		os.Exit(1)
	}
	logger.Info("Connected to Qdrant", "collection", cfg.IndexName)

	// 5. OpenAI clients
	embedder := embedding.NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.EmbeddingModel, cfg.VectorDimensions)
	llmClient := llm.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.ChatModel)
	defer func() {
		if err := llmClient.Close(); err != nil {
			logger.Error("Error closing LLM client", "error", err)
		}
	}()

	// 6. Domain services
	limiter := ratelimit.NewLimiter(redisStore, logger)
	cache := llmcache.New(redisStore, logger)
	memoryManager := memory.NewManager(redisStore, logger)
	searchService := search.NewService(embedder, index, dbClient, logger)

	fplClient := tools.NewFPLClient(cfg.FPLBaseURL, logger)
	registry := tools.NewRegistry(
		tools.NewNewsSearchTool(searchService, logger),
		tools.NewPlayerStatsTool(dbClient, fplClient, searchService, logger),
		tools.NewFPLAnalysisTool(searchService, logger),
	)
	chatService := orchestrator.New(llmClient, registry, cache, memoryManager, logger)

	// 7. Vector ingestion worker
	taskQueue := ingest.NewTaskQueue(redisStore, logger)
	worker := ingest.NewWorker(dbClient, embedder, index, taskQueue, ingest.Config{
		BatchSize:          cfg.IngestBatchSize,
		ProcessingInterval: cfg.ProcessingInterval,
		MaxRetries:         cfg.MaxRetries,
	}, logger)
	if err := worker.Start(ctx); err != nil {
		logger.Error("Failed to start ingestion worker", "error", err)
		os.Exit(1)
	}
	logger.Info("Vector ingestion worker started")

	// 8. HTTP server
	server := api.NewServer(&cfg, limiter, chatService, cache, searchService, worker, dbClient, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	logger.Info("Pitchwire started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case err := <-errCh:
		logger.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	done := make(chan struct{})
	go func() {
		worker.Stop()
		close(done)
	}()
	select {
	case <-done:
		logger.Info("Ingestion worker stopped gracefully")
	case <-shutdownCtx.Done():
		logger.Warn("Ingestion worker shutdown timeout exceeded")
	}
}
