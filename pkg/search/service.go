package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/pitchwire/pitchwire/pkg/embedding"
	"github.com/pitchwire/pitchwire/pkg/store"
	"github.com/pitchwire/pitchwire/pkg/vectorindex"
)

// ArticleSource supplies article rows for scoring.
type ArticleSource interface {
	GetArticlesByIDs(ctx context.Context, ids []int64) (map[int64]*store.Article, error)
}

// Options tunes one search invocation. Zero values take the defaults noted
// per field.
type Options struct {
	// TopK is the candidate count fetched from the vector index before
	// re-ranking. Default 20.
	TopK int
	// FinalK is the result count after re-ranking. Default 5.
	FinalK int
	// Strategy selects the scoring formula. Default hybrid.
	Strategy Strategy
	// Source restricts results to one outlet.
	Source string
	// Sentiment is "", "positive", "negative", or "neutral".
	Sentiment string
	// DateFrom/DateTo bound the published date, inclusive.
	DateFrom *time.Time
	DateTo   *time.Time
}

// Service runs enhanced semantic search: embed the query, fetch candidates
// from the vector index, join article rows, then re-rank.
type Service struct {
	embedder embedding.Embedder
	index    vectorindex.Index
	articles ArticleSource
	logger   *slog.Logger
	now      func() time.Time
}

// NewService wires the search pipeline.
func NewService(embedder embedding.Embedder, index vectorindex.Index, articles ArticleSource, logger *slog.Logger) *Service {
	return &Service{
		embedder: embedder,
		index:    index,
		articles: articles,
		logger:   logger.With("component", "search"),
		now:      time.Now,
	}
}

// Search returns re-ranked results for the query.
func (s *Service) Search(ctx context.Context, query string, opts Options) ([]Ranked, error) {
	if opts.TopK <= 0 {
		opts.TopK = 20
	}
	if opts.FinalK <= 0 {
		opts.FinalK = 5
	}
	if !ValidStrategy(opts.Strategy) {
		opts.Strategy = StrategyHybrid
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	matches, err := s.index.Query(ctx, vec, opts.TopK, indexFilter(opts))
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	if len(matches) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ArticleID)
	}
	articles, err := s.articles.GetArticlesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load candidate articles: %w", err)
	}

	candidates := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		a, ok := articles[m.ArticleID]
		if !ok {
			continue
		}
		if !withinDateRange(a.PublishedDate, opts.DateFrom, opts.DateTo) {
			continue
		}
		candidates = append(candidates, Candidate{Article: a, SemanticScore: m.Score})
	}

	results := Rank(query, candidates, opts.Strategy, opts.FinalK, s.now())
	s.logger.Info("search completed",
		"strategy", opts.Strategy,
		"candidates", len(candidates),
		"results", len(results))
	return results, nil
}

func indexFilter(opts Options) *vectorindex.Filter {
	f := &vectorindex.Filter{Source: opts.Source}

	switch opts.Sentiment {
	case "positive":
		f.SentimentGte = ptr(0.1)
	case "negative":
		f.SentimentLte = ptr(-0.1)
	case "neutral":
		f.SentimentGte = ptr(-0.1)
		f.SentimentLte = ptr(0.1)
	}

	if f.Source == "" && f.SentimentGte == nil && f.SentimentLte == nil {
		return nil
	}
	return f
}

func withinDateRange(published time.Time, from, to *time.Time) bool {
	if from != nil && published.Before(*from) {
		return false
	}
	if to != nil && published.After(*to) {
		return false
	}
	return true
}

func ptr(v float64) *float64 { return &v }
