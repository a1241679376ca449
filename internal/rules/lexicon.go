package rules

import (
	"math"
	"strings"
	"unicode"
)

// Valence lexicon. Values follow the usual -4..+4 convention of
// lexicon-based sentiment raters; intensity matters, not just sign.
var valence = map[string]float64{
	"abysmal": -3.3, "adore": 2.9, "amazing": 2.8, "angry": -2.3,
	"annoying": -1.9, "awesome": 3.1, "awful": -2.9, "bad": -2.5,
	"beautiful": 2.7, "best": 3.2, "bland": -1.2, "boring": -1.8,
	"brilliant": 3.0, "broken": -2.1, "calm": 1.3, "charming": 2.2,
	"cheap": -1.1, "clean": 1.4, "comfortable": 1.9, "confusing": -1.6,
	"cool": 1.6, "crap": -2.6, "delicious": 2.8, "delight": 2.6,
	"disappointing": -2.4, "disgusting": -3.1, "dreadful": -2.9,
	"enjoy": 2.0, "excellent": 3.2, "excited": 2.2, "fail": -2.3,
	"fantastic": 3.0, "fine": 1.0, "flawless": 3.0, "fresh": 1.5,
	"friendly": 2.1, "fun": 2.3, "garbage": -2.8, "glad": 1.9,
	"good": 1.9, "great": 3.1, "happy": 2.7, "hate": -2.7,
	"helpful": 1.9, "horrible": -3.0, "hurt": -2.0, "impressive": 2.4,
	"incredible": 2.9, "joy": 2.8, "lame": -1.7, "like": 1.5,
	"love": 3.2, "lovely": 2.8, "mediocre": -1.3, "mess": -1.8,
	"nasty": -2.4, "nice": 1.8, "outstanding": 3.2, "pain": -2.0,
	"perfect": 3.1, "pleasant": 2.0, "poor": -2.1, "problem": -1.7,
	"recommend": 1.6, "rude": -2.2, "sad": -2.1, "scam": -3.0,
	"slow": -1.2, "smooth": 1.7, "solid": 1.5, "stunning": 2.9,
	"stupid": -2.4, "superb": 3.1, "terrible": -3.1, "terrific": 2.8,
	"trash": -2.6, "ugly": -2.3, "unusable": -2.7, "useful": 1.8,
	"useless": -2.5, "waste": -2.4, "weak": -1.4, "wonderful": 2.9,
	"worst": -3.4, "wow": 2.4, "wrong": -1.8,
}

// Degree modifiers scale the valence of the following word.
var boosters = map[string]float64{
	"absolutely": 0.29, "barely": -0.29, "completely": 0.29,
	"extremely": 0.29, "fairly": -0.15, "hardly": -0.29,
	"incredibly": 0.29, "kind": -0.15, "kinda": -0.15, "pretty": 0.15,
	"really": 0.27, "slightly": -0.22, "so": 0.27, "somewhat": -0.15,
	"terribly": 0.29, "totally": 0.29, "truly": 0.27, "very": 0.29,
}

// Negators flip the sign of the next scored word.
var negators = map[string]bool{
	"aint": true, "cannot": true, "cant": true, "dont": true,
	"didnt": true, "doesnt": true, "isnt": true, "never": true,
	"no": true, "none": true, "not": true, "nothing": true,
	"wasnt": true, "wont": true, "wouldnt": true,
}

// Words that carry opinion without strong polarity; they count toward
// subjectivity only.
var subjectiveExtra = map[string]bool{
	"apparently": true, "believe": true, "feel": true, "felt": true,
	"guess": true, "hope": true, "maybe": true, "opinion": true,
	"personally": true, "probably": true, "seem": true, "seems": true,
	"suppose": true, "think": true, "thought": true, "wish": true,
}

// tokenize lowercases and strips punctuation, keeping word-internal
// apostrophes collapsed ("don't" -> "dont").
func tokenize(text string) []string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'':
			// drop
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Fields(b.String())
}

// score walks tokens applying negation and degree modifiers, returning the
// summed valence and the number of scored (opinion-bearing) tokens.
func score(tokens []string) (sum float64, hits int) {
	negate := false
	boost := 0.0
	for _, tok := range tokens {
		if negators[tok] {
			negate = true
			continue
		}
		if b, ok := boosters[tok]; ok {
			boost += b
			continue
		}
		v, ok := valence[tok]
		if !ok {
			if subjectiveExtra[tok] {
				hits++
			}
			negate = false
			boost = 0
			continue
		}
		if boost != 0 {
			if v > 0 {
				v += boost
			} else {
				v -= boost
			}
		}
		if negate {
			v = -v * 0.74
		}
		sum += v
		hits++
		negate = false
		boost = 0
	}
	return sum, hits
}

// normalize squashes a summed valence into [-1, 1].
func normalize(sum float64) float64 {
	n := sum / math.Sqrt(sum*sum+15)
	if n > 1 {
		return 1
	}
	if n < -1 {
		return -1
	}
	return n
}
