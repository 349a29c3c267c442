// Package provider defines the inference provider contract and the
// built-in heuristic engines. A provider wraps one model or algorithm and
// returns a prediction plus confidence for a text.
package provider

import (
	"context"
	"errors"
	"fmt"

	"adaptd/pkg/types"
)

// Prediction is the result of one provider call.
type Prediction struct {
	Label      string
	Score      float64
	Confidence float64
	Details    map[string]any
}

// Provider is the contract the orchestration core requires from an
// inference backend. Nothing beyond this surface is assumed.
type Provider interface {
	// Predict analyzes text. Implementations must honor ctx cancellation
	// for long-running work.
	Predict(ctx context.Context, text string) (Prediction, error)
	// FootprintMB reports the measured memory held by this provider.
	FootprintMB() int
	// Close releases the provider's resources.
	Close() error
}

// Factory resolves a descriptor to a live provider. Construction is the
// load step: it may be slow and may fail.
type Factory interface {
	New(desc types.ModelDescriptor) (Provider, error)
}

// ErrUnavailable signals that the engine backing a descriptor is not
// compiled into this binary or its runtime dependency is missing. The
// fallback chain advances past it.
var ErrUnavailable = errors.New("provider engine unavailable")

// Engine names understood by the default factory.
const (
	EngineLexicon  = "lexicon"
	EngineRules    = "rules"
	EngineKeywords = "keywords"
	EngineLlama    = "llama"
)

// EngineFactory is the default Factory, switching on descriptor engine.
type EngineFactory struct {
	// Llama generation settings, used only by the llama engine.
	LlamaCtx     int
	LlamaThreads int
}

func (f *EngineFactory) New(desc types.ModelDescriptor) (Provider, error) {
	switch desc.Engine {
	case EngineLexicon:
		return NewLexicon(), nil
	case EngineRules:
		return NewRules(), nil
	case EngineKeywords:
		return NewKeywords(), nil
	case EngineLlama:
		return newLlama(desc, f.LlamaCtx, f.LlamaThreads)
	default:
		return nil, fmt.Errorf("unknown engine %q for %s", desc.Engine, desc.Key())
	}
}

// Heuristic reports whether an engine is a resource-free heuristic that
// always loads and never fails for well-formed input.
func Heuristic(engine string) bool {
	switch engine {
	case EngineLexicon, EngineRules, EngineKeywords:
		return true
	}
	return false
}

// FallbackEngine picks the heuristic that serves a task when none of its
// model candidates is usable. Tasks without a purpose-built heuristic get
// keyword matching, which degrades to a "general" label on unknown input.
func FallbackEngine(task string) string {
	switch task {
	case "sentiment":
		return EngineLexicon
	case "emotion":
		return EngineRules
	default:
		return EngineKeywords
	}
}
