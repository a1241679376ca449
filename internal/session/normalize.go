package session

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"classd/pkg/types"
)

// Output is the normalized result of one inference. Exactly one of
// Sentiment or Classification is set; Task names which. Raw keeps the
// untransformed native output for diagnostic display.
type Output struct {
	Task           types.Task
	Sentiment      *types.SentimentPayload
	Classification *types.ClassificationPayload
	Raw            []types.LabelScore
}

// maxSentimentClasses is the largest label set still treated as a scalar
// sentiment shape; anything larger becomes a classification distribution.
const maxSentimentClasses = 3

// Normalize translates an arbitrary native output shape into one of the
// two payload shapes. Matchers are tried in a fixed priority order:
// two-class, star pattern, numeric index, large label set. No match is a
// parse failure.
func Normalize(raw []types.LabelScore) (Output, error) {
	if len(raw) == 0 {
		return Output{}, ErrParseFailure("model returned no labels")
	}
	for _, m := range []func([]types.LabelScore) (Output, bool){
		matchTwoClass,
		matchStars,
		matchNumericIndex,
		matchLargeLabelSet,
	} {
		if out, ok := m(raw); ok {
			out.Raw = raw
			return out, nil
		}
	}
	return Output{}, ErrParseFailure(fmt.Sprintf("unrecognized output shape: %d labels, first %q", len(raw), raw[0].Label))
}

// matchTwoClass handles positive/negative outputs (a neutral class may tag
// along). The score is the signed difference of the two class scores.
func matchTwoClass(raw []types.LabelScore) (Output, bool) {
	if len(raw) > maxSentimentClasses {
		return Output{}, false
	}
	var pos, neg float64
	sawPos, sawNeg := false, false
	for _, ls := range raw {
		switch canonicalSentimentLabel(ls.Label) {
		case types.SentimentPositive:
			pos = ls.Score
			sawPos = true
		case types.SentimentNegative:
			neg = ls.Score
			sawNeg = true
		case types.SentimentNeutral:
			// contributes nothing to the signed score
		default:
			return Output{}, false
		}
	}
	if !sawPos && !sawNeg {
		return Output{}, false
	}
	score := pos - neg
	return Output{
		Task:      types.TaskSentiment,
		Sentiment: &types.SentimentPayload{Score: score, Label: bucketScore(score)},
	}, true
}

var starPattern = regexp.MustCompile(`(?i)^\s*([1-5])\s*stars?\s*$`)

// matchStars handles "N star(s)" rating outputs, N in [1,5]:
// score = (N-3)/2, label positive at N>=4, negative at N<=2, else neutral.
func matchStars(raw []types.LabelScore) (Output, bool) {
	stars := make([]int, len(raw))
	for i, ls := range raw {
		m := starPattern.FindStringSubmatch(ls.Label)
		if m == nil {
			return Output{}, false
		}
		stars[i], _ = strconv.Atoi(m[1])
	}
	n := stars[topIndex(raw)]
	return Output{Task: types.TaskSentiment, Sentiment: starPayload(n)}, true
}

// matchNumericIndex handles purely numeric labels 0..4, treated as
// stars = label+1 and then the star rule applies.
func matchNumericIndex(raw []types.LabelScore) (Output, bool) {
	idx := make([]int, len(raw))
	for i, ls := range raw {
		v, err := strconv.Atoi(strings.TrimSpace(ls.Label))
		if err != nil || v < 0 || v > 4 {
			return Output{}, false
		}
		idx[i] = v
	}
	n := idx[topIndex(raw)] + 1
	return Output{Task: types.TaskSentiment, Sentiment: starPayload(n)}, true
}

// matchLargeLabelSet treats any output with more than maxSentimentClasses
// classes as a classification distribution rather than a sentiment scalar.
func matchLargeLabelSet(raw []types.LabelScore) (Output, bool) {
	if len(raw) <= maxSentimentClasses {
		return Output{}, false
	}
	dist := make(map[string]float64, len(raw))
	for _, ls := range raw {
		dist[ls.Label] = ls.Score
	}
	top := raw[topIndex(raw)]
	return Output{
		Task: types.TaskClassification,
		Classification: &types.ClassificationPayload{
			TopLabel:     top.Label,
			Confidence:   top.Score,
			Distribution: dist,
		},
	}, true
}

func starPayload(n int) *types.SentimentPayload {
	score := float64(n-3) / 2
	label := types.SentimentNeutral
	switch {
	case n >= 4:
		label = types.SentimentPositive
	case n <= 2:
		label = types.SentimentNegative
	}
	return &types.SentimentPayload{Score: score, Label: label}
}

func canonicalSentimentLabel(label string) types.SentimentLabel {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "positive", "pos", "label_1":
		return types.SentimentPositive
	case "negative", "neg", "label_0":
		return types.SentimentNegative
	case "neutral", "neu":
		return types.SentimentNeutral
	default:
		return ""
	}
}

func bucketScore(score float64) types.SentimentLabel {
	switch {
	case score >= 0.05:
		return types.SentimentPositive
	case score <= -0.05:
		return types.SentimentNegative
	default:
		return types.SentimentNeutral
	}
}

func topIndex(raw []types.LabelScore) int {
	top := 0
	for i, ls := range raw {
		if ls.Score > raw[top].Score {
			top = i
		}
	}
	return top
}
