package ingest

import "strings"

// Positive and negative lexicons for the football-news domain. Scoring is
// (positive hits - negative hits) / total hits, so the result is bounded
// to [-1, 1] without clamping.
var positiveWords = []string{
	"win", "wins", "won", "victory", "triumph", "brilliant", "excellent",
	"outstanding", "superb", "stunning", "impressive", "dominant", "success",
	"successful", "clinical", "masterclass", "unbeaten", "champion",
	"celebrate", "delight", "boost", "return", "fit", "recovered",
}

var negativeWords = []string{
	"loss", "lose", "loses", "lost", "defeat", "defeated", "injury",
	"injured", "blow", "crisis", "poor", "woeful", "terrible", "disaster",
	"disappointing", "struggle", "struggling", "relegation", "sacked",
	"banned", "suspended", "doubt", "setback", "fear", "miss", "ruled",
}

// SentimentScore computes a lexicon-based sentiment for the text.
func SentimentScore(text string) float64 {
	words := strings.Fields(strings.ToLower(text))
	var pos, neg int
	for _, w := range words {
		w = strings.Trim(w, ".,:;!?\"'()[]")
		if contains(positiveWords, w) {
			pos++
		} else if contains(negativeWords, w) {
			neg++
		}
	}

	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

func contains(list []string, w string) bool {
	for _, item := range list {
		if item == w {
			return true
		}
	}
	return false
}
