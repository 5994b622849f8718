package api

import (
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/pitchwire/pitchwire/pkg/search"
)

// EnhancedSearchRequest is the body for POST /api/v1/search/enhanced-search.
type EnhancedSearchRequest struct {
	Query             string  `json:"query"`
	TopK              int     `json:"top_k"`
	RankingStrategy   string  `json:"ranking_strategy"`
	SourceFilter      string  `json:"source_filter"`
	DateFrom          string  `json:"date_from"`
	DateTo            string  `json:"date_to"`
	SentimentFilter   string  `json:"sentiment_filter"`
	MinRelevanceScore float64 `json:"min_relevance_score"`
}

// EnhancedSearchResult is one ranked hit in the search response.
type EnhancedSearchResult struct {
	ID             string             `json:"id"`
	ArticleID      int64              `json:"article_id"`
	Title          string             `json:"title"`
	URL            string             `json:"url"`
	Source         string             `json:"source"`
	PublishedDate  time.Time          `json:"published_date"`
	ContentSnippet string             `json:"content_snippet"`
	FinalScore     float64            `json:"final_score"`
	ScoreBreakdown map[string]float64 `json:"score_breakdown"`
	SentimentScore *float64           `json:"sentiment_score"`
	CreatedAt      time.Time          `json:"created_at"`
	Rank           int                `json:"rank"`
}

// EnhancedSearchResponse wraps the ranked results with timing and the
// filters that were actually applied.
type EnhancedSearchResponse struct {
	Query           string                 `json:"query"`
	TotalResults    int                    `json:"total_results"`
	RankingStrategy string                 `json:"ranking_strategy"`
	Results         []EnhancedSearchResult `json:"results"`
	SearchTimeMs    float64                `json:"search_time_ms"`
	FiltersApplied  map[string]any         `json:"filters_applied"`
}

const snippetLen = 200

func (s *Server) enhancedSearchHandler(c *echo.Context) error {
	req := EnhancedSearchRequest{TopK: 5, RankingStrategy: string(search.StrategyHybrid)}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query is required")
	}
	if req.TopK < 1 || req.TopK > 50 {
		return echo.NewHTTPError(http.StatusBadRequest, "top_k must be between 1 and 50")
	}
	strategy := search.Strategy(req.RankingStrategy)
	if !search.ValidStrategy(strategy) {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid ranking_strategy %q", req.RankingStrategy))
	}
	switch req.SentimentFilter {
	case "", "positive", "negative", "neutral":
	default:
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("invalid sentiment_filter %q", req.SentimentFilter))
	}
	if req.MinRelevanceScore < 0 || req.MinRelevanceScore > 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "min_relevance_score must be between 0 and 1")
	}
	dateFrom, err := parseSearchDate(req.DateFrom)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date_from")
	}
	dateTo, err := parseSearchDate(req.DateTo)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date_to")
	}

	opts := search.Options{
		TopK:      min(req.TopK*2, 50),
		FinalK:    req.TopK,
		Strategy:  strategy,
		Source:    req.SourceFilter,
		Sentiment: req.SentimentFilter,
		DateFrom:  dateFrom,
		DateTo:    dateTo,
	}

	start := time.Now()
	ranked, err := s.search.Search(c.Request().Context(), req.Query, opts)
	if err != nil {
		s.logger.Error("enhanced search failed", "error", err, "query", req.Query)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	elapsed := float64(time.Since(start).Microseconds()) / 1000

	results := make([]EnhancedSearchResult, 0, len(ranked))
	for _, r := range ranked {
		if req.MinRelevanceScore > 0 && r.FinalScore < req.MinRelevanceScore {
			continue
		}
		if len(results) == req.TopK {
			break
		}
		a := r.Article
		vectorID := fmt.Sprintf("article_%d", a.ID)
		if a.SearchVectorID != nil {
			vectorID = *a.SearchVectorID
		}
		results = append(results, EnhancedSearchResult{
			ID:             vectorID,
			ArticleID:      a.ID,
			Title:          a.Title,
			URL:            a.URL,
			Source:         a.Source,
			PublishedDate:  a.PublishedDate,
			ContentSnippet: snippet(a.Content),
			FinalScore:     r.FinalScore,
			ScoreBreakdown: r.Breakdown,
			SentimentScore: a.SentimentScore,
			CreatedAt:      a.CreatedAt,
			Rank:           len(results) + 1,
		})
	}

	return c.JSON(http.StatusOK, EnhancedSearchResponse{
		Query:           req.Query,
		TotalResults:    len(results),
		RankingStrategy: req.RankingStrategy,
		Results:         results,
		SearchTimeMs:    math.Round(elapsed*100) / 100,
		FiltersApplied:  appliedFilters(req),
	})
}

func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLen {
		return content
	}
	return string(runes[:snippetLen]) + "..."
}

// parseSearchDate accepts RFC 3339 timestamps or bare dates.
func parseSearchDate(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", v)
}

func appliedFilters(req EnhancedSearchRequest) map[string]any {
	filters := map[string]any{}
	if req.SourceFilter != "" {
		filters["source"] = req.SourceFilter
	}
	if req.SentimentFilter != "" {
		filters["sentiment"] = req.SentimentFilter
	}
	if req.DateFrom != "" {
		filters["date_from"] = req.DateFrom
	}
	if req.DateTo != "" {
		filters["date_to"] = req.DateTo
	}
	if req.MinRelevanceScore > 0 {
		filters["min_relevance_score"] = req.MinRelevanceScore
	}
	return filters
}
