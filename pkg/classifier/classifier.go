// Package classifier assigns incoming chat queries to a caching category.
// The category drives whether a response is cached at all and for how long.
package classifier

import "regexp"

// Category is a query caching category.
type Category string

const (
	// CategoryNoCache marks personalized queries whose answers must never
	// be shared between users.
	CategoryNoCache Category = "no_cache"
	// CategoryFactual covers stable facts such as player stats and records.
	CategoryFactual Category = "factual"
	// CategoryNews covers recency-sensitive queries.
	CategoryNews Category = "news"
	// CategoryOpinion covers analysis and general discussion.
	CategoryOpinion Category = "opinion"
)

var factualPatterns = compileAll(
	`\b(stats?|statistics?|record|career|age|nationality|position|height|weight)\b`,
	`\b(goals?|assists?|appearances?|minutes?|cards?|saves?)\b`,
	`\b(born|birth|club|team|league|transfer|contract)\b`,
	`\b(when|where|how many|what position|which team)\b`,
)

var newsPatterns = compileAll(
	`\b(news|latest|recent|today|yesterday|this week|update)\b`,
	`\b(injury|injured|transfer|signed|rumor|report)\b`,
	`\b(match|game|fixture|result|score|win|loss|draw)\b`,
	`\b(happening|occurred|announced|confirmed)\b`,
)

var opinionPatterns = compileAll(
	`\b(think|opinion|believe|feel|rate|rank|compare)\b`,
	`\b(best|worst|better|worse|underrated|overrated)\b`,
	`\b(should|would|could|might|analysis|tactical)\b`,
	`\b(prediction|forecast|expect|likely|probably)\b`,
)

var personalizedPatterns = compileAll(
	`\b(my team|my squad|recommend|suggest|advice)\b`,
	`\b(should i|help me|what do you think i)\b`,
	`\b(for me|in my|my budget|my league)\b`,
	`\bfpl.*(recommend|suggest|advice|team|squad)\b`,
)

func compileAll(exprs ...string) []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(exprs))
	for i, expr := range exprs {
		patterns[i] = regexp.MustCompile(`(?i)` + expr)
	}
	return patterns
}

func countMatches(patterns []*regexp.Regexp, query string) int {
	n := 0
	for _, p := range patterns {
		if p.MatchString(query) {
			n++
		}
	}
	return n
}

// Classify determines the caching category for a query. Personalized queries
// short-circuit to no_cache; otherwise the group with the most pattern hits
// wins, with factual beating news beating opinion on ties. Queries matching
// nothing default to opinion.
func Classify(query string) Category {
	for _, p := range personalizedPatterns {
		if p.MatchString(query) {
			return CategoryNoCache
		}
	}

	factual := countMatches(factualPatterns, query)
	news := countMatches(newsPatterns, query)
	opinion := countMatches(opinionPatterns, query)

	max := factual
	if news > max {
		max = news
	}
	if opinion > max {
		max = opinion
	}

	switch {
	case max == 0:
		return CategoryOpinion
	case factual == max:
		return CategoryFactual
	case news == max:
		return CategoryNews
	default:
		return CategoryOpinion
	}
}
