package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pitchwire/pitchwire/pkg/search"
)

// NewsSearchTool runs hybrid-ranked news search and formats the top hits
// for the model.
type NewsSearchTool struct {
	search Searcher
	logger *slog.Logger
}

func NewNewsSearchTool(searcher Searcher, logger *slog.Logger) *NewsSearchTool {
	return &NewsSearchTool{search: searcher, logger: logger.With("tool", "football_news_search")}
}

func (t *NewsSearchTool) Name() string { return "football_news_search" }

func (t *NewsSearchTool) Description() string {
	return "Search for recent football news articles. Use this for questions about transfers, match results, injuries, and current football events."
}

func (t *NewsSearchTool) ParametersSchema() string {
	return `{"type":"object","properties":{"query":{"type":"string","description":"The search query for football news"}},"required":["query"]}`
}

func (t *NewsSearchTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	results, err := t.search.Search(ctx, args.Query, search.Options{
		FinalK:   5,
		Strategy: search.StrategyHybrid,
	})
	if err != nil {
		return "", fmt.Errorf("news search: %w", err)
	}

	if len(results) == 0 {
		return "No relevant articles found for: " + args.Query, nil
	}

	var b strings.Builder
	for i, r := range results {
		if i >= 3 {
			break
		}
		a := r.Article
		fmt.Fprintf(&b, "**%s**\n", a.Title)
		fmt.Fprintf(&b, "Source: %s\n", a.Source)
		fmt.Fprintf(&b, "Date: %s\n", a.PublishedDate.Format("2006-01-02"))
		fmt.Fprintf(&b, "Relevance: %.2f\n", r.FinalScore)
		fmt.Fprintf(&b, "Summary: %s...\n", truncateRunes(a.Content, 200))
		fmt.Fprintf(&b, "URL: %s\n\n", a.URL)
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}
