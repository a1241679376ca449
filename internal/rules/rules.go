// Package rules implements the cheap rule-based scorers. They run
// synchronously over each line with no inference host involved.
package rules

import (
	"classd/pkg/types"
)

// Scorer is one rule-based analyzer.
type Scorer interface {
	// Descriptor returns the catalog entry for this scorer.
	Descriptor() types.Analyzer
	// Score analyzes one trimmed, non-empty line.
	Score(text string) (types.SentimentPayload, error)
}

// Builtins returns the built-in scorers in their canonical order.
func Builtins() []Scorer {
	return []Scorer{
		compoundScorer{},
		polarityScorer{},
		subjectivityScorer{},
	}
}

// ByID resolves a built-in scorer by analyzer id.
func ByID(id string) (Scorer, bool) {
	for _, s := range Builtins() {
		if s.Descriptor().ID == id {
			return s, true
		}
	}
	return nil, false
}

// bucket maps a polarity-style score in [-1,1] to a label.
func bucket(score float64) types.SentimentLabel {
	switch {
	case score >= 0.05:
		return types.SentimentPositive
	case score <= -0.05:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}
