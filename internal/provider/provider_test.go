package provider

import (
	"context"
	"errors"
	"testing"

	"adaptd/pkg/types"
)

func TestLexiconPositive(t *testing.T) {
	p := NewLexicon()
	pred, err := p.Predict(context.Background(), "I love this, it is great and works perfectly")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Label != "positive" {
		t.Fatalf("want positive got %q", pred.Label)
	}
	if pred.Confidence <= 0 || pred.Confidence > 1 {
		t.Fatalf("confidence out of range: %v", pred.Confidence)
	}
}

func TestLexiconNegative(t *testing.T) {
	p := NewLexicon()
	pred, err := p.Predict(context.Background(), "this is terrible, the worst, I hate it")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Label != "negative" {
		t.Fatalf("want negative got %q", pred.Label)
	}
}

func TestLexiconNeutralNoHits(t *testing.T) {
	p := NewLexicon()
	pred, err := p.Predict(context.Background(), "the train departs at seven")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Label != "neutral" {
		t.Fatalf("want neutral got %q", pred.Label)
	}
}

func TestLexiconRejectsEmpty(t *testing.T) {
	p := NewLexicon()
	if _, err := p.Predict(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for blank text")
	}
}

func TestRulesEmotion(t *testing.T) {
	p := NewRules()
	pred, err := p.Predict(context.Background(), "I am so angry and frustrated about this")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Label != "anger" {
		t.Fatalf("want anger got %q", pred.Label)
	}
}

func TestKeywordsTopic(t *testing.T) {
	p := NewKeywords()
	pred, err := p.Predict(context.Background(), "my boss moved the project deadline and the meeting ran long")
	if err != nil {
		t.Fatalf("predict: %v", err)
	}
	if pred.Label != "work" {
		t.Fatalf("want work got %q", pred.Label)
	}
}

func TestHeuristicProvidersHaveZeroFootprint(t *testing.T) {
	for _, p := range []Provider{NewLexicon(), NewRules(), NewKeywords()} {
		if p.FootprintMB() != 0 {
			t.Fatalf("heuristic footprint should be 0, got %d", p.FootprintMB())
		}
		if err := p.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
}

func TestEngineFactoryUnknownEngine(t *testing.T) {
	f := &EngineFactory{}
	if _, err := f.New(types.ModelDescriptor{Task: "sentiment", Name: "x", Engine: "bogus"}); err == nil {
		t.Fatalf("expected error for unknown engine")
	}
}

func TestEngineFactoryLlamaStubUnavailable(t *testing.T) {
	// Default (no 'llama' tag) builds must fail loads with ErrUnavailable
	// so the fallback chain advances.
	f := &EngineFactory{}
	_, err := f.New(types.ModelDescriptor{Task: "sentiment", Name: "gguf", Engine: EngineLlama, Path: "/tmp/x.gguf"})
	if err == nil {
		t.Skip("built with llama support")
	}
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("want ErrUnavailable got %v", err)
	}
}

func TestHeuristicPredicate(t *testing.T) {
	if !Heuristic(EngineLexicon) || !Heuristic(EngineRules) || !Heuristic(EngineKeywords) {
		t.Fatalf("heuristic engines misreported")
	}
	if Heuristic(EngineLlama) || Heuristic("bogus") {
		t.Fatalf("non-heuristic engines misreported")
	}
}
