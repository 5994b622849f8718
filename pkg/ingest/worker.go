// Package ingest keeps the external vector index in sync with article rows:
// embedding generation, sentiment scoring, and index upserts, driven by a
// task queue plus a periodic backlog sweep.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pitchwire/pitchwire/pkg/embedding"
	"github.com/pitchwire/pitchwire/pkg/store"
	"github.com/pitchwire/pitchwire/pkg/vectorindex"
)

const (
	maxEmbedInput  = 8000
	interItemPause = 200 * time.Millisecond
)

// ArticleStore is the slice of the article store the worker needs.
type ArticleStore interface {
	GetArticle(ctx context.Context, id int64) (*store.Article, error)
	ListPendingEmbedding(ctx context.Context, limit int) ([]*store.Article, error)
	SetEmbeddingStatus(ctx context.Context, id int64, status string) error
	CompleteEmbedding(ctx context.Context, id int64, embedding []float32, sentiment float64, vectorID, contentHash string) error
	ResetProcessing(ctx context.Context) (int64, error)
	EmbeddingStats(ctx context.Context) (map[string]int64, error)
}

// Config tunes the worker.
type Config struct {
	BatchSize          int
	ProcessingInterval time.Duration
	MaxRetries         int
}

// BatchStats summarizes one sweep.
type BatchStats struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
}

// Worker processes articles into the vector index.
type Worker struct {
	articles ArticleStore
	embedder embedding.Embedder
	index    vectorindex.Index
	queue    *TaskQueue
	config   Config
	logger   *slog.Logger

	retryBase time.Duration
	pause     time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWorker(articles ArticleStore, embedder embedding.Embedder, index vectorindex.Index, queue *TaskQueue, cfg Config, logger *slog.Logger) *Worker {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 10
	}
	if cfg.ProcessingInterval <= 0 {
		cfg.ProcessingInterval = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	return &Worker{
		articles:  articles,
		embedder:  embedder,
		index:     index,
		queue:     queue,
		config:    cfg,
		logger:    logger.With("component", "ingest"),
		retryBase: time.Second,
		pause:     interItemPause,
		stopCh:    make(chan struct{}),
	}
}

// Start recovers stuck rows, then launches the sweep loop and, when a task
// queue is attached, the task consumer loop.
func (w *Worker) Start(ctx context.Context) error {
	reset, err := w.articles.ResetProcessing(ctx)
	if err != nil {
		return fmt.Errorf("reset processing articles: %w", err)
	}
	if reset > 0 {
		w.logger.Info("Recovered stuck articles", "count", reset)
	}

	w.wg.Add(1)
	go w.sweepLoop(ctx)
	if w.queue != nil {
		w.wg.Add(1)
		go w.taskLoop(ctx)
	}
	w.logger.Info("Ingestion worker started",
		"batch_size", w.config.BatchSize,
		"interval", w.config.ProcessingInterval)
	return nil
}

// Stop signals the loops to exit and waits for them. Safe to call twice.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

func (w *Worker) sweepLoop(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.ProcessingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := w.ProcessBatch(ctx)
			if err != nil {
				w.logger.Error("Batch sweep failed", "error", err)
				continue
			}
			if stats.Processed > 0 {
				w.logger.Info("Batch sweep finished",
					"processed", stats.Processed,
					"succeeded", stats.Succeeded,
					"failed", stats.Failed)
			}
		}
	}
}

// ProcessBatch embeds up to BatchSize pending articles sequentially, pausing
// between items to stay under provider rate limits.
func (w *Worker) ProcessBatch(ctx context.Context) (BatchStats, error) {
	var stats BatchStats

	pending, err := w.articles.ListPendingEmbedding(ctx, w.config.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("list pending articles: %w", err)
	}

	for i, article := range pending {
		stats.Processed++
		if err := w.ProcessArticle(ctx, article.ID); err != nil {
			stats.Failed++
			w.logger.Error("Article processing failed", "article_id", article.ID, "error", err)
		} else {
			stats.Succeeded++
		}

		if i < len(pending)-1 {
			select {
			case <-time.After(w.pause):
			case <-ctx.Done():
				return stats, ctx.Err()
			}
		}
	}
	return stats, nil
}

// ProcessArticle runs the full embedding lifecycle for one article. Already
// completed articles with an unchanged content hash are skipped.
func (w *Worker) ProcessArticle(ctx context.Context, id int64) error {
	article, err := w.articles.GetArticle(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.logger.Warn("Article vanished before processing", "article_id", id)
			return nil
		}
		return fmt.Errorf("load article %d: %w", id, err)
	}
	if article.IsDeleted {
		return nil
	}

	text := article.Title + "\n\n" + article.Content
	sum := sha256.Sum256([]byte(text))
	contentHash := hex.EncodeToString(sum[:])

	if article.EmbeddingStatus == store.EmbeddingCompleted &&
		article.ContentHash != nil && *article.ContentHash == contentHash &&
		len(article.VectorEmbedding) > 0 {
		return nil
	}

	if err := w.articles.SetEmbeddingStatus(ctx, id, store.EmbeddingProcessing); err != nil {
		return fmt.Errorf("mark article %d processing: %w", id, err)
	}

	vector, err := w.embedWithRetry(ctx, truncate(text, maxEmbedInput))
	if err != nil {
		w.markFailed(ctx, id)
		return fmt.Errorf("embed article %d: %w", id, err)
	}

	sentiment := SentimentScore(text)
	vectorID := fmt.Sprintf("article_%d", id)

	point := vectorindex.Point{
		ID:     id,
		Vector: vector,
		Payload: vectorindex.Metadata{
			Title:         truncate(article.Title, 512),
			Source:        article.Source,
			PublishedDate: article.PublishedDate.Format(time.RFC3339),
			URL:           truncate(article.URL, 512),
			Sentiment:     sentiment,
			ContentHash:   contentHash,
			ArticleID:     id,
		},
	}
	if err := w.index.Upsert(ctx, point); err != nil {
		w.markFailed(ctx, id)
		return fmt.Errorf("upsert vector for article %d: %w", id, err)
	}

	if err := w.articles.CompleteEmbedding(ctx, id, vector, sentiment, vectorID, contentHash); err != nil {
		return fmt.Errorf("complete article %d: %w", id, err)
	}

	w.logger.Info("Stored embedding", "article_id", id, "vector_id", vectorID)
	return nil
}

// Stats reports article counts per embedding state.
func (w *Worker) Stats(ctx context.Context) (map[string]int64, error) {
	return w.articles.EmbeddingStats(ctx)
}

// embedWithRetry retries rate-limited calls with exponential backoff. Other
// provider errors fail immediately.
func (w *Worker) embedWithRetry(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	for attempt := 0; attempt < w.config.MaxRetries; attempt++ {
		vector, err := w.embedder.Embed(ctx, text)
		if err == nil {
			return vector, nil
		}
		if !errors.Is(err, embedding.ErrRateLimited) {
			return nil, err
		}
		lastErr = err

		backoff := w.retryBase * (1 << attempt)
		w.logger.Warn("Embedding rate limited, backing off",
			"attempt", attempt+1, "backoff", backoff)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return nil, lastErr
}

func (w *Worker) markFailed(ctx context.Context, id int64) {
	if err := w.articles.SetEmbeddingStatus(ctx, id, store.EmbeddingFailed); err != nil {
		w.logger.Error("Failed to mark article failed", "article_id", id, "error", err)
	}
}

// truncate limits s to n runes without splitting a UTF-8 sequence; the
// index payload strings must stay valid UTF-8.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
