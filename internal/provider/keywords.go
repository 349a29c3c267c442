package provider

import (
	"context"
	"errors"
	"sort"
)

var topicCues = map[string][]string{
	"work":          {"work", "job", "meeting", "boss", "project", "deadline", "office", "colleague"},
	"health":        {"health", "doctor", "sleep", "tired", "exercise", "sick", "gym", "diet"},
	"relationships": {"friend", "family", "partner", "wife", "husband", "mother", "father", "relationship"},
	"travel":        {"travel", "trip", "flight", "vacation", "hotel", "visit", "journey"},
	"finance":       {"money", "budget", "salary", "rent", "invest", "savings", "debt", "price"},
}

// Keywords is the keyword-match topic fallback.
type Keywords struct{}

func NewKeywords() *Keywords { return &Keywords{} }

func (k *Keywords) Predict(_ context.Context, text string) (Prediction, error) {
	words := tokenize(text)
	if len(words) == 0 {
		return Prediction{}, errors.New("no analyzable tokens")
	}
	present := make(map[string]struct{}, len(words))
	for _, w := range words {
		present[w] = struct{}{}
	}
	counts := map[string]int{}
	for topic, cues := range topicCues {
		for _, cue := range cues {
			if _, ok := present[cue]; ok {
				counts[topic]++
			}
		}
	}
	topics := make([]string, 0, len(counts))
	for topic := range counts {
		topics = append(topics, topic)
	}
	sort.Slice(topics, func(i, j int) bool {
		if counts[topics[i]] != counts[topics[j]] {
			return counts[topics[i]] > counts[topics[j]]
		}
		return topics[i] < topics[j]
	})
	label := "general"
	conf := 0.3
	if len(topics) > 0 {
		label = topics[0]
		conf = 0.5 + 0.3*minf(1, float64(counts[label])/2)
	}
	return Prediction{
		Label:      label,
		Score:      float64(counts[label]),
		Confidence: conf,
		Details:    map[string]any{"topics": topics, "topic_hits": counts},
	}, nil
}

func (k *Keywords) FootprintMB() int { return 0 }
func (k *Keywords) Close() error     { return nil }
