// Package vectorindex wraps the Qdrant client behind a small interface used
// by the ingest worker and the search service.
package vectorindex

import "context"

// Metadata is the payload stored alongside each article vector. Title and
// URL are truncated by the ingest worker before they arrive here.
type Metadata struct {
	Title         string
	Source        string
	PublishedDate string
	URL           string
	Sentiment     float64
	ContentHash   string
	ArticleID     int64
}

// Point is one article vector plus payload. The article id doubles as the
// point id.
type Point struct {
	ID      int64
	Vector  []float32
	Payload Metadata
}

// Filter narrows a query to matching payloads.
type Filter struct {
	Source       string
	SentimentGte *float64
	SentimentLte *float64
}

// Match is a scored query result.
type Match struct {
	ArticleID int64
	Score     float64
}

// Index is the vector store contract.
type Index interface {
	// Upsert writes or replaces an article vector.
	Upsert(ctx context.Context, point Point) error

	// Query returns the closest matches to vector, best first.
	Query(ctx context.Context, vector []float32, limit int, filter *Filter) ([]Match, error)

	// Delete removes article vectors by id.
	Delete(ctx context.Context, ids ...int64) error

	// Close releases the underlying connection.
	Close() error
}
