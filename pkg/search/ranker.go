// Package search re-scores semantic search candidates with temporal,
// source-credibility, lexical, quality, and sentiment signals, and exposes
// the enhanced search service built on the vector index.
package search

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/pitchwire/pitchwire/pkg/store"
)

// Strategy selects the scoring formula.
type Strategy string

const (
	StrategySemantic   Strategy = "semantic"
	StrategyTemporal   Strategy = "temporal"
	StrategyEngagement Strategy = "engagement"
	StrategyHybrid     Strategy = "hybrid"
)

// ValidStrategy reports whether s names a known ranking strategy.
func ValidStrategy(s Strategy) bool {
	switch s {
	case StrategySemantic, StrategyTemporal, StrategyEngagement, StrategyHybrid:
		return true
	}
	return false
}

// sourceCredibility weights trusted outlets above the 0.7 default.
var sourceCredibility = map[string]float64{
	"BBC Sport":              1.0,
	"Sky Sports":             0.95,
	"Guardian":               0.95,
	"Telegraph":              0.9,
	"Fantasy Football Scout": 0.85,
	"ESPN":                   0.8,
}

const defaultCredibility = 0.7

var clickbaitPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+\s+(things|ways|reasons|facts)`),
	regexp.MustCompile(`you won't believe`),
	regexp.MustCompile(`shocking`),
	regexp.MustCompile(`amazing`),
	regexp.MustCompile(`incredible`),
}

// Candidate is one vector search hit joined with its article row.
type Candidate struct {
	Article       *store.Article
	SemanticScore float64
}

// Ranked is a candidate with its final score and per-signal breakdown.
type Ranked struct {
	Article       *store.Article     `json:"article"`
	SemanticScore float64            `json:"semantic_score"`
	FinalScore    float64            `json:"final_score"`
	Breakdown     map[string]float64 `json:"score_breakdown"`
}

// Rank scores candidates under the given strategy and returns them sorted
// best first, truncated to finalK. Ties are broken by source credibility,
// then by published date, then by input order.
func Rank(query string, candidates []Candidate, strategy Strategy, finalK int, now time.Time) []Ranked {
	ranked := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		ranked = append(ranked, score(query, c, strategy, now))
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].FinalScore != ranked[j].FinalScore {
			return ranked[i].FinalScore > ranked[j].FinalScore
		}
		ci := credibility(ranked[i].Article.Source)
		cj := credibility(ranked[j].Article.Source)
		if ci != cj {
			return ci > cj
		}
		return ranked[i].Article.PublishedDate.After(ranked[j].Article.PublishedDate)
	})

	if finalK > 0 && len(ranked) > finalK {
		ranked = ranked[:finalK]
	}
	return ranked
}

func score(query string, c Candidate, strategy Strategy, now time.Time) Ranked {
	a := c.Article
	semantic := c.SemanticScore

	var final float64
	var breakdown map[string]float64

	switch strategy {
	case StrategySemantic:
		final = semantic
		breakdown = map[string]float64{
			"semantic": semantic,
			"total":    final,
		}

	case StrategyTemporal:
		temporal := timeDecay(a.PublishedDate, 0.1, now)
		text := textRelevance(query, a.Title, a.Content)
		final = semantic*0.6 + temporal*0.3 + text*0.1
		breakdown = map[string]float64{
			"semantic":       semantic,
			"temporal":       temporal,
			"text_relevance": text,
			"total":          final,
		}

	case StrategyEngagement:
		source := credibility(a.Source)
		quality := contentQuality(a.Title, a.Content)
		text := textRelevance(query, a.Title, a.Content)
		sentiment := sentimentRelevance(a.SentimentScore)
		final = semantic*0.5 + source*0.2 + quality*0.15 + text*0.1 + sentiment*0.05
		breakdown = map[string]float64{
			"semantic":           semantic,
			"source_credibility": source,
			"content_quality":    quality,
			"text_relevance":     text,
			"sentiment":          sentiment,
			"total":              final,
		}

	default: // hybrid
		temporal := timeDecay(a.PublishedDate, 0.05, now)
		source := credibility(a.Source)
		text := textRelevance(query, a.Title, a.Content)
		quality := contentQuality(a.Title, a.Content)
		sentiment := sentimentRelevance(a.SentimentScore)
		final = semantic*0.4 + temporal*0.25 + source*0.15 + text*0.1 + quality*0.07 + sentiment*0.03
		breakdown = map[string]float64{
			"semantic":           semantic,
			"temporal":           temporal,
			"source_credibility": source,
			"text_relevance":     text,
			"content_quality":    quality,
			"sentiment":          sentiment,
			"total":              final,
		}
	}

	return Ranked{Article: a, SemanticScore: semantic, FinalScore: final, Breakdown: breakdown}
}

func credibility(source string) float64 {
	if w, ok := sourceCredibility[source]; ok {
		return w
	}
	return defaultCredibility
}

// timeDecay applies exponential age decay; articles without a date score a
// flat 0.5.
func timeDecay(published time.Time, lambda float64, now time.Time) float64 {
	if published.IsZero() {
		return 0.5
	}
	daysOld := math.Floor(now.Sub(published).Hours() / 24)
	if daysOld < 0 {
		daysOld = 0
	}
	return math.Exp(-lambda * daysOld)
}

// textRelevance counts query terms appearing as substrings, with title
// matches weighted double; capped at 1.
func textRelevance(query, title, content string) float64 {
	terms := map[string]struct{}{}
	for _, t := range strings.Fields(strings.ToLower(query)) {
		terms[t] = struct{}{}
	}
	if len(terms) == 0 {
		return 0
	}

	titleText := strings.ToLower(title)
	contentText := strings.ToLower(content)

	var titleHits, contentHits int
	for t := range terms {
		if strings.Contains(titleText, t) {
			titleHits++
		}
		if strings.Contains(contentText, t) {
			contentHits++
		}
	}

	boost := float64(titleHits)/float64(len(terms))*2.0 + float64(contentHits)/float64(len(terms))
	return math.Min(boost, 1.0)
}

// contentQuality averages a body-length score with a title score penalised
// for clickbait markers.
func contentQuality(title, content string) float64 {
	length := float64(len(content))
	var lengthScore float64
	switch {
	case length >= 500 && length <= 2000:
		lengthScore = 1.0
	case length < 500:
		lengthScore = length / 500.0
	default:
		lengthScore = math.Max(0.5, 2000/length)
	}

	titleScore := 1.0
	if len(title) < 20 || len(title) > 150 {
		titleScore = 0.8
	}
	lowerTitle := strings.ToLower(title)
	for _, p := range clickbaitPatterns {
		if p.MatchString(lowerTitle) {
			titleScore *= 0.7
			break
		}
	}

	return (lengthScore + titleScore) / 2.0
}

// sentimentRelevance maps a sentiment score in [-1, 1] into a [0.3, 0.8]
// boost that mildly favors neutral-to-positive coverage.
func sentimentRelevance(s *float64) float64 {
	if s == nil {
		return 0.5
	}
	if *s >= 0 {
		return 0.5 + *s*0.3
	}
	return 0.5 + *s*0.2
}
