package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Article is a news article row. Vector fields track its life in the
// semantic index.
type Article struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	Content         string    `json:"content"`
	Summary         *string   `json:"summary,omitempty"`
	PublishedDate   time.Time `json:"published_date"`
	Source          string    `json:"source"`
	Author          *string   `json:"author,omitempty"`
	Status          string    `json:"status"`
	IsDeleted       bool      `json:"is_deleted"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
	VectorEmbedding []float32 `json:"-"`
	EmbeddingStatus string    `json:"embedding_status"`
	SentimentScore  *float64  `json:"sentiment_score,omitempty"`
	SearchVectorID  *string   `json:"search_vector_id,omitempty"`
	ContentHash     *string   `json:"content_hash,omitempty"`
}

// Embedding life-cycle states.
const (
	EmbeddingPending    = "pending"
	EmbeddingProcessing = "processing"
	EmbeddingCompleted  = "completed"
	EmbeddingFailed     = "failed"
)

const articleColumns = `id, title, url, content, summary, published_date, source, author,
	status, is_deleted, created_at, updated_at, vector_embedding, embedding_status,
	sentiment_score, search_vector_id, content_hash`

func scanArticle(row interface{ Scan(...any) error }) (*Article, error) {
	var a Article
	var embedding []byte
	err := row.Scan(
		&a.ID, &a.Title, &a.URL, &a.Content, &a.Summary, &a.PublishedDate,
		&a.Source, &a.Author, &a.Status, &a.IsDeleted, &a.CreatedAt, &a.UpdatedAt,
		&embedding, &a.EmbeddingStatus, &a.SentimentScore, &a.SearchVectorID,
		&a.ContentHash,
	)
	if err != nil {
		return nil, err
	}
	if len(embedding) > 0 {
		if err := json.Unmarshal(embedding, &a.VectorEmbedding); err != nil {
			return nil, fmt.Errorf("decode vector_embedding for article %d: %w", a.ID, err)
		}
	}
	a.PublishedDate = a.PublishedDate.UTC()
	return &a, nil
}

// GetArticle fetches an article by id, excluding soft-deleted rows.
func (c *Client) GetArticle(ctx context.Context, id int64) (*Article, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+` FROM article WHERE id = $1 AND is_deleted = FALSE`, id)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %d: %w", id, err)
	}
	return a, nil
}

// GetArticlesByIDs fetches a batch of articles keyed by id. Missing ids are
// simply absent from the result.
func (c *Client) GetArticlesByIDs(ctx context.Context, ids []int64) (map[int64]*Article, error) {
	if len(ids) == 0 {
		return map[int64]*Article{}, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}

	rows, err := c.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM article WHERE id IN (`+strings.Join(placeholders, ", ")+`) AND is_deleted = FALSE`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("get articles by ids: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]*Article, len(ids))
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out[a.ID] = a
	}
	return out, rows.Err()
}

// ListPendingEmbedding returns up to limit articles waiting for vector
// processing, oldest first.
func (c *Client) ListPendingEmbedding(ctx context.Context, limit int) ([]*Article, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+articleColumns+` FROM article
		 WHERE embedding_status = $1 AND is_deleted = FALSE
		 ORDER BY created_at ASC
		 LIMIT $2`, EmbeddingPending, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending articles: %w", err)
	}
	defer rows.Close()

	var out []*Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetEmbeddingStatus moves an article to a new embedding state.
func (c *Client) SetEmbeddingStatus(ctx context.Context, id int64, status string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE article SET embedding_status = $1, updated_at = now() WHERE id = $2`,
		status, id)
	if err != nil {
		return fmt.Errorf("set embedding status for article %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CompleteEmbedding stores the vector processing outputs and marks the
// article completed in one statement.
func (c *Client) CompleteEmbedding(ctx context.Context, id int64, embedding []float32, sentiment float64, vectorID, contentHash string) error {
	raw, err := json.Marshal(embedding)
	if err != nil {
		return fmt.Errorf("encode embedding for article %d: %w", id, err)
	}

	res, err := c.db.ExecContext(ctx,
		`UPDATE article
		 SET vector_embedding = $1, sentiment_score = $2, search_vector_id = $3,
		     content_hash = $4, embedding_status = $5, updated_at = now()
		 WHERE id = $6`,
		raw, sentiment, vectorID, contentHash, EmbeddingCompleted, id)
	if err != nil {
		return fmt.Errorf("complete embedding for article %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ResetProcessing moves articles stuck in processing back to pending.
// Called at worker startup so a crash mid-batch does not strand rows.
func (c *Client) ResetProcessing(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		`UPDATE article SET embedding_status = $1, updated_at = now() WHERE embedding_status = $2`,
		EmbeddingPending, EmbeddingProcessing)
	if err != nil {
		return 0, fmt.Errorf("reset processing articles: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// EmbeddingStats returns article counts per embedding state.
func (c *Client) EmbeddingStats(ctx context.Context) (map[string]int64, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT embedding_status, COUNT(*) FROM article WHERE is_deleted = FALSE GROUP BY embedding_status`)
	if err != nil {
		return nil, fmt.Errorf("embedding stats: %w", err)
	}
	defer rows.Close()

	stats := map[string]int64{
		EmbeddingPending:    0,
		EmbeddingProcessing: 0,
		EmbeddingCompleted:  0,
		EmbeddingFailed:     0,
	}
	for rows.Next() {
		var status string
		var count int64
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan embedding stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}
