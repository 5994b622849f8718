package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pitchwire/pitchwire/pkg/search"
)

// FPLAnalysisTool searches for fantasy-angle coverage of a query and keeps
// only articles that actually discuss FPL.
type FPLAnalysisTool struct {
	search Searcher
	logger *slog.Logger
}

func NewFPLAnalysisTool(searcher Searcher, logger *slog.Logger) *FPLAnalysisTool {
	return &FPLAnalysisTool{search: searcher, logger: logger.With("tool", "fpl_analysis")}
}

func (t *FPLAnalysisTool) Name() string { return "fpl_analysis" }

func (t *FPLAnalysisTool) Description() string {
	return "Get Fantasy Premier League analysis and advice: player value, price changes, captaincy picks, and transfer recommendations."
}

func (t *FPLAnalysisTool) ParametersSchema() string {
	return `{"type":"object","properties":{"query":{"type":"string","description":"The FPL topic or player to analyse"}},"required":["query"]}`
}

func (t *FPLAnalysisTool) Execute(ctx context.Context, arguments string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(arguments), &args); err != nil {
		return "", fmt.Errorf("parse arguments: %w", err)
	}

	results, err := t.search.Search(ctx, args.Query+" FPL fantasy premier league value price", search.Options{
		FinalK:   3,
		Strategy: search.StrategyHybrid,
	})
	if err != nil {
		return "", fmt.Errorf("fpl analysis search: %w", err)
	}

	var b strings.Builder
	for _, r := range results {
		a := r.Article
		if !strings.Contains(strings.ToLower(a.Title), "fantasy") &&
			!strings.Contains(strings.ToLower(a.Content), "fpl") {
			continue
		}
		fmt.Fprintf(&b, "FPL Analysis: %s\n", a.Title)
		fmt.Fprintf(&b, "Key points: %s...\n", truncateRunes(a.Content, 150))
		fmt.Fprintf(&b, "Source: %s\n\n", a.Source)
	}

	if b.Len() == 0 {
		return fmt.Sprintf("No specific FPL analysis found for: %s. Consider checking recent performance and injury news.", args.Query), nil
	}
	return strings.TrimRight(b.String(), "\n") + "\n", nil
}
