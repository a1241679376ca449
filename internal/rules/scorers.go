package rules

import (
	"math"

	"classd/pkg/types"
)

// compoundScorer sums lexicon valences with negation and degree handling
// and squashes the total into [-1, 1].
type compoundScorer struct{}

func (compoundScorer) Descriptor() types.Analyzer {
	return types.Analyzer{
		ID:          "lexicon-compound",
		DisplayName: "Lexicon compound: -1.0 (negative emotion) to +1.0 (positive emotion)",
		Kind:        types.KindRuleBased,
		Task:        types.TaskSentiment,
	}
}

func (compoundScorer) Score(text string) (types.SentimentPayload, error) {
	sum, _ := score(tokenize(text))
	s := round3(normalize(sum))
	return types.SentimentPayload{Score: s, Label: bucket(s)}, nil
}

// polarityScorer averages the valence of matched words, scaled to [-1, 1].
// Unlike the compound scorer it does not reward repetition.
type polarityScorer struct{}

func (polarityScorer) Descriptor() types.Analyzer {
	return types.Analyzer{
		ID:          "polarity",
		DisplayName: "Polarity: -1.0 (negative) to +1.0 (positive)",
		Kind:        types.KindRuleBased,
		Task:        types.TaskSentiment,
	}
}

func (polarityScorer) Score(text string) (types.SentimentPayload, error) {
	tokens := tokenize(text)
	sum, hits := score(tokens)
	if hits == 0 {
		return types.SentimentPayload{Score: 0, Label: types.SentimentNeutral}, nil
	}
	// Mean valence on the -4..+4 scale, mapped to [-1, 1].
	s := round3(sum / float64(hits) / 4.0)
	if s > 1 {
		s = 1
	} else if s < -1 {
		s = -1
	}
	return types.SentimentPayload{Score: s, Label: bucket(s)}, nil
}

// subjectivityScorer reports the fraction of opinion-bearing tokens,
// 0.0 (objective) to 1.0 (subjective). The label is always neutral: the
// score measures opinionatedness, not polarity.
type subjectivityScorer struct{}

func (subjectivityScorer) Descriptor() types.Analyzer {
	return types.Analyzer{
		ID:          "subjectivity",
		DisplayName: "Subjectivity: 0.0 (objective) to +1.0 (subjective)",
		Kind:        types.KindRuleBased,
		Task:        types.TaskSentiment,
	}
}

func (subjectivityScorer) Score(text string) (types.SentimentPayload, error) {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return types.SentimentPayload{Score: 0, Label: types.SentimentNeutral}, nil
	}
	_, hits := score(tokens)
	s := round3(float64(hits) / float64(len(tokens)))
	if s > 1 {
		s = 1
	}
	return types.SentimentPayload{Score: s, Label: types.SentimentNeutral}, nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
