// Package llmcache caches generated chat responses in the shared key-value
// store, keyed by message, conversation context, and query category. TTLs
// vary by category so volatile answers age out faster than stable ones.
package llmcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/pitchwire/pitchwire/pkg/classifier"
	"github.com/pitchwire/pitchwire/pkg/kvstore"
)

// TTLs per query category. no_cache is absent: those queries never reach
// the store.
var categoryTTL = map[classifier.Category]time.Duration{
	classifier.CategoryFactual: 6 * time.Hour,
	classifier.CategoryNews:    2 * time.Hour,
	classifier.CategoryOpinion: 24 * time.Hour,
}

// TTLFor returns the cache TTL for a category, zero for uncacheable ones.
func TTLFor(category classifier.Category) time.Duration {
	return categoryTTL[category]
}

// Result is the outcome of a cache lookup.
type Result struct {
	Category classifier.Category
	TTL      time.Duration
	Response string
	Hit      bool
}

// record is the JSON document stored per cache entry.
type record struct {
	Response  string  `json:"response"`
	Timestamp string  `json:"timestamp"`
	Message   string  `json:"message"`
	Context   string  `json:"context"`
	Category  string  `json:"category"`
	TTLHours  float64 `json:"ttl_hours"`
}

// Cache stores and retrieves chat responses.
type Cache struct {
	store  kvstore.Store
	logger *slog.Logger
	stats  *Statistics
	now    func() time.Time
}

// New creates a Cache over the shared store.
func New(store kvstore.Store, logger *slog.Logger) *Cache {
	return &Cache{
		store:  store,
		logger: logger.With("component", "llmcache"),
		stats:  NewStatistics(),
		now:    time.Now,
	}
}

// Key derives the store key for a message in its conversation context. The
// category participates both in the hash input and the key prefix, so the
// same question cached under different categories never collides.
func Key(message, convContext string, category classifier.Category) string {
	input := fmt.Sprintf("%s|%s|%s", message, convContext, category)
	sum := sha256.Sum256([]byte(input))
	return fmt.Sprintf("llm_cache_%s:%s", category, hex.EncodeToString(sum[:]))
}

// Lookup classifies the message and checks the store for a cached response.
// Personalized queries are reported as uncacheable without touching the
// store. Store failures count as errors and degrade to a miss.
func (c *Cache) Lookup(ctx context.Context, message, convContext string) Result {
	start := c.now()
	category := classifier.Classify(message)

	if category == classifier.CategoryNoCache {
		c.stats.RecordNoCache(category)
		c.logger.Info("query not cacheable", "category", category)
		return Result{Category: category}
	}

	ttl := categoryTTL[category]
	key := Key(message, convContext, category)

	raw, err := c.store.Get(ctx, key)
	elapsed := c.now().Sub(start).Seconds()
	if err != nil {
		if !kvstore.IsNotFound(err) {
			c.logger.Error("cache lookup failed", "error", err)
			c.stats.RecordError()
			return Result{Category: category, TTL: ttl}
		}
		c.stats.RecordMiss(elapsed, category)
		c.logger.Info("cache miss", "category", category, "key", key[:20])
		return Result{Category: category, TTL: ttl}
	}

	var rec record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		c.logger.Error("corrupt cache entry", "key", key[:20], "error", err)
		c.stats.RecordError()
		return Result{Category: category, TTL: ttl}
	}

	c.stats.RecordHit(elapsed, category)
	c.logger.Info("cache hit", "category", category, "key", key[:20])
	return Result{Category: category, TTL: ttl, Response: rec.Response, Hit: true}
}

// Store writes a generated response under its category TTL. Uncacheable
// queries are ignored.
func (c *Cache) Store(ctx context.Context, message, response, convContext string) {
	category := classifier.Classify(message)
	if category == classifier.CategoryNoCache {
		return
	}

	ttl := categoryTTL[category]
	key := Key(message, convContext, category)

	rec := record{
		Response:  response,
		Timestamp: c.now().Format(time.RFC3339),
		Message:   message,
		Context:   convContext,
		Category:  string(category),
		TTLHours:  math.Round(ttl.Hours()*100) / 100,
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		c.stats.RecordError()
		return
	}

	if err := c.store.SetEx(ctx, key, string(raw), ttl); err != nil {
		c.logger.Error("failed to cache response", "error", err)
		c.stats.RecordError()
		return
	}

	c.stats.RecordSave(category)
	c.logger.Info("cached response", "category", category, "ttl", ttl, "key", key[:20])
}

// Clear deletes every cached response and resets statistics, returning the
// number of keys removed.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	patterns := []string{"llm_cache:*", "llm_cache_*:*"}
	var deleted int64

	for _, pattern := range patterns {
		var cursor uint64
		for {
			keys, next, err := c.store.Scan(ctx, cursor, pattern, 100)
			if err != nil {
				return deleted, fmt.Errorf("scan cache keys: %w", err)
			}
			if len(keys) > 0 {
				n, err := c.store.Del(ctx, keys...)
				if err != nil {
					return deleted, fmt.Errorf("delete cache keys: %w", err)
				}
				deleted += n
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}

	c.stats.Reset()
	c.logger.Info("cache cleared", "keys_deleted", deleted)
	return deleted, nil
}

// Stats returns a snapshot of cache activity since startup or last clear.
func (c *Cache) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}
