package vectorindex

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantConfig holds connection settings for the Qdrant server.
type QdrantConfig struct {
	Host   string
	Port   int
	APIKey string
	UseTLS bool
}

// LoadQdrantConfigFromEnv loads Qdrant configuration from environment variables
func LoadQdrantConfigFromEnv() (QdrantConfig, error) {
	port, err := strconv.Atoi(getEnvOrDefault("QDRANT_PORT", "6334"))
	if err != nil {
		return QdrantConfig{}, fmt.Errorf("invalid QDRANT_PORT: %w", err)
	}

	return QdrantConfig{
		Host:   getEnvOrDefault("QDRANT_HOST", "localhost"),
		Port:   port,
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_USE_TLS") == "true",
	}, nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// QdrantIndex is the Qdrant-backed Index implementation. One collection
// holds all article vectors; the namespace is carried in the payload.
type QdrantIndex struct {
	client     *qdrant.Client
	collection string
	namespace  string
}

// NewQdrantIndex connects to Qdrant and ensures the collection exists with
// the expected vector width.
func NewQdrantIndex(ctx context.Context, cfg QdrantConfig, collection, namespace string, dimensions int) (*QdrantIndex, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to qdrant: %w", err)
	}

	exists, err := client.CollectionExists(ctx, collection)
	if err != nil {
		return nil, fmt.Errorf("check collection %s: %w", collection, err)
	}
	if !exists {
		err = client.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: collection,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(dimensions),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return nil, fmt.Errorf("create collection %s: %w", collection, err)
		}
	}

	return &QdrantIndex{client: client, collection: collection, namespace: namespace}, nil
}

// Upsert writes or replaces an article vector with its payload.
func (q *QdrantIndex) Upsert(ctx context.Context, point Point) error {
	payload := map[string]any{
		"title":          point.Payload.Title,
		"source":         point.Payload.Source,
		"published_date": point.Payload.PublishedDate,
		"url":            point.Payload.URL,
		"sentiment":      point.Payload.Sentiment,
		"content_hash":   point.Payload.ContentHash,
		"article_id":     point.Payload.ArticleID,
		"namespace":      q.namespace,
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDNum(uint64(point.ID)),
			Vectors: qdrant.NewVectors(point.Vector...),
			Payload: qdrant.NewValueMap(payload),
		}},
	})
	if err != nil {
		return fmt.Errorf("upsert point %d: %w", point.ID, err)
	}
	return nil
}

// Query returns the closest matches to vector, best first.
func (q *QdrantIndex) Query(ctx context.Context, vector []float32, limit int, filter *Filter) ([]Match, error) {
	req := &qdrant.QueryPoints{
		CollectionName: q.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		Filter:         buildFilter(q.namespace, filter),
		WithPayload:    qdrant.NewWithPayload(true),
	}

	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", q.collection, err)
	}

	matches := make([]Match, 0, len(points))
	for _, p := range points {
		id, ok := pointArticleID(p)
		if !ok {
			continue
		}
		matches = append(matches, Match{ArticleID: id, Score: float64(p.Score)})
	}
	return matches, nil
}

// Delete removes article vectors by id.
func (q *QdrantIndex) Delete(ctx context.Context, ids ...int64) error {
	pointIDs := make([]*qdrant.PointId, len(ids))
	for i, id := range ids {
		pointIDs[i] = qdrant.NewIDNum(uint64(id))
	}

	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collection,
		Points:         qdrant.NewPointsSelector(pointIDs...),
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

// Close releases the underlying connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

func buildFilter(namespace string, f *Filter) *qdrant.Filter {
	must := []*qdrant.Condition{qdrant.NewMatch("namespace", namespace)}

	if f != nil {
		if f.Source != "" {
			must = append(must, qdrant.NewMatch("source", f.Source))
		}
		if f.SentimentGte != nil || f.SentimentLte != nil {
			must = append(must, qdrant.NewRange("sentiment", &qdrant.Range{
				Gte: f.SentimentGte,
				Lte: f.SentimentLte,
			}))
		}
	}
	return &qdrant.Filter{Must: must}
}

func pointArticleID(p *qdrant.ScoredPoint) (int64, bool) {
	if p.Id == nil {
		return 0, false
	}
	if num, ok := p.Id.PointIdOptions.(*qdrant.PointId_Num); ok {
		return int64(num.Num), true
	}
	return 0, false
}
