package provider

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

// Small in-binary sentiment lexicon. Deliberately modest: this is the
// always-available floor of the fallback chain, not a contender.
var (
	positiveWords = map[string]struct{}{}
	negativeWords = map[string]struct{}{}
)

func init() {
	for _, w := range []string{
		"love", "like", "great", "good", "excellent", "amazing", "awesome",
		"wonderful", "fantastic", "happy", "glad", "best", "perfect",
		"enjoy", "enjoyed", "nice", "delightful", "pleased", "impressive",
		"helpful", "beautiful", "brilliant", "win", "success", "thank",
	} {
		positiveWords[w] = struct{}{}
	}
	for _, w := range []string{
		"hate", "dislike", "bad", "terrible", "awful", "horrible", "worst",
		"sad", "angry", "annoying", "broken", "fail", "failed", "failure",
		"poor", "ugly", "disappointing", "disappointed", "useless", "slow",
		"bug", "buggy", "wrong", "pain", "problem",
	} {
		negativeWords[w] = struct{}{}
	}
}

// Lexicon is the rule-free sentiment fallback. Zero footprint, loads
// instantly, never fails for non-empty input.
type Lexicon struct{}

func NewLexicon() *Lexicon { return &Lexicon{} }

func (l *Lexicon) Predict(_ context.Context, text string) (Prediction, error) {
	words := tokenize(text)
	if len(words) == 0 {
		return Prediction{}, errors.New("no analyzable tokens")
	}
	var pos, neg int
	for _, w := range words {
		if _, ok := positiveWords[w]; ok {
			pos++
		}
		if _, ok := negativeWords[w]; ok {
			neg++
		}
	}
	hits := pos + neg
	label := "neutral"
	score := 0.0
	if hits > 0 {
		score = float64(pos-neg) / float64(hits)
		if score > 0.1 {
			label = "positive"
		} else if score < -0.1 {
			label = "negative"
		}
	}
	conf := 0.4
	if hits > 0 {
		conf = 0.5 + 0.4*minf(1, float64(hits)/float64(len(words))*4)
	}
	return Prediction{
		Label:      label,
		Score:      score,
		Confidence: conf,
		Details:    map[string]any{"positive_hits": pos, "negative_hits": neg, "tokens": len(words)},
	}, nil
}

func (l *Lexicon) FootprintMB() int { return 0 }
func (l *Lexicon) Close() error     { return nil }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r) && r != '\''
	})
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
