package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected Category
	}{
		{
			name:     "player stats query is factual",
			query:    "How many goals has Haaland scored this season?",
			expected: CategoryFactual,
		},
		{
			name:     "latest news query is news",
			query:    "Any injury news from today's training?",
			expected: CategoryNews,
		},
		{
			name:     "comparison query is opinion",
			query:    "Who do you think is the best midfielder, rate them",
			expected: CategoryOpinion,
		},
		{
			name:     "my team query is personalized",
			query:    "Should I captain Salah in my team this week?",
			expected: CategoryNoCache,
		},
		{
			name:     "fpl recommendation is personalized",
			query:    "FPL advice please, who to transfer in",
			expected: CategoryNoCache,
		},
		{
			name:     "no matches defaults to opinion",
			query:    "Hello there",
			expected: CategoryOpinion,
		},
		{
			name:     "factual wins ties over news",
			query:    "transfer",
			expected: CategoryFactual,
		},
		{
			name:     "personalized checked before factual",
			query:    "Recommend a striker with good stats for my budget",
			expected: CategoryNoCache,
		},
		{
			name:     "case insensitive matching",
			query:    "LATEST INJURY UPDATE",
			expected: CategoryNews,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Classify(tt.query))
		})
	}
}
