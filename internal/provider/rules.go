package provider

import (
	"context"
	"errors"
)

// emotionCues maps each emotion to trigger words. Longest-standing trick in
// the book; good enough for the degraded path.
var emotionCues = map[string][]string{
	"joy":      {"happy", "joy", "glad", "delighted", "excited", "love", "wonderful", "great", "celebrate"},
	"sadness":  {"sad", "unhappy", "depressed", "miserable", "cry", "lonely", "lost", "grief"},
	"anger":    {"angry", "furious", "mad", "annoyed", "hate", "rage", "outraged", "frustrated"},
	"fear":     {"afraid", "scared", "terrified", "worried", "anxious", "nervous", "panic", "dread"},
	"surprise": {"surprised", "shocked", "astonished", "unexpected", "sudden", "wow"},
}

// Rules is the keyword-cue emotion fallback.
type Rules struct{}

func NewRules() *Rules { return &Rules{} }

func (r *Rules) Predict(_ context.Context, text string) (Prediction, error) {
	words := tokenize(text)
	if len(words) == 0 {
		return Prediction{}, errors.New("no analyzable tokens")
	}
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}
	counts := map[string]int{}
	total := 0
	for emotion, cues := range emotionCues {
		for _, cue := range cues {
			if _, ok := present[cue]; ok {
				counts[emotion]++
				total++
			}
		}
	}
	best := "neutral"
	bestN := 0
	for emotion, n := range counts {
		if n > bestN || (n == bestN && n > 0 && emotion < best) {
			best, bestN = emotion, n
		}
	}
	conf := 0.35
	if total > 0 {
		conf = 0.5 + 0.35*minf(1, float64(bestN)/2)
	}
	return Prediction{
		Label:      best,
		Score:      float64(bestN),
		Confidence: conf,
		Details:    map[string]any{"emotion_hits": counts},
	}, nil
}

func (r *Rules) FootprintMB() int { return 0 }
func (r *Rules) Close() error     { return nil }
