package features

import (
	"strings"
	"unicode"

	"FXPull/internal/domain/models"
)

// Lexicon word lists for headline scoring, tuned for FX and macro
// coverage. Deliberately small; the score feeds a coarse per-period
// signal, not a classifier.
var (
	positiveWords = map[string]struct{}{
		"gain": {}, "gains": {}, "rally": {}, "rallies": {}, "surge": {},
		"surges": {}, "rise": {}, "rises": {}, "rose": {}, "strong": {},
		"strengthen": {}, "strengthens": {}, "boost": {}, "boosts": {},
		"optimism": {}, "optimistic": {}, "recovery": {}, "recovers": {},
		"growth": {}, "upbeat": {}, "bullish": {}, "soar": {}, "soars": {},
		"beat": {}, "beats": {}, "high": {}, "highs": {}, "improve": {},
		"improves": {}, "improved": {}, "advance": {}, "advances": {},
	}
	negativeWords = map[string]struct{}{
		"loss": {}, "losses": {}, "fall": {}, "falls": {}, "fell": {},
		"drop": {}, "drops": {}, "dropped": {}, "weak": {}, "weaken": {},
		"weakens": {}, "slump": {}, "slumps": {}, "plunge": {}, "plunges": {},
		"fear": {}, "fears": {}, "recession": {}, "crisis": {}, "decline": {},
		"declines": {}, "declined": {}, "bearish": {}, "tumble": {},
		"tumbles": {}, "miss": {}, "misses": {}, "low": {}, "lows": {},
		"cut": {}, "cuts": {}, "risk": {}, "risks": {}, "worries": {},
	}
)

// ScoreArticle scores one article's headline and body in [-1, 1].
// Zero means neutral or no lexicon hits.
func ScoreArticle(a models.Article) float64 {
	return ScoreText(a.Headline + " " + a.Body)
}

// ScoreText computes (positive - negative) / (positive + negative) over
// lexicon hits in text.
func ScoreText(text string) float64 {
	var pos, neg int
	for _, word := range tokenize(text) {
		if _, ok := positiveWords[word]; ok {
			pos++
		} else if _, ok := negativeWords[word]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0
	}
	return float64(pos-neg) / float64(total)
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
