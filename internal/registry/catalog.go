package registry

import (
	"adaptd/internal/provider"
	"adaptd/pkg/types"
)

// DefaultCatalog is the built-in candidate table, used when the config file
// does not declare models. Per task, descriptors are ordered most accurate
// and most expensive first; the terminal entry is always a resource-free
// heuristic so the fallback chain cannot be exhausted.
func DefaultCatalog() []types.ModelDescriptor {
	return []types.ModelDescriptor{
		{Task: "sentiment", Name: "transformer-large", Engine: provider.EngineLlama, MemoryEstimateMB: 2200, Accuracy: types.AccuracyHigh, CPUCompatible: false},
		{Task: "sentiment", Name: "transformer-base", Engine: provider.EngineLlama, MemoryEstimateMB: 500, Accuracy: types.AccuracyMedium, CPUCompatible: true},
		{Task: "sentiment", Name: "lexicon", Engine: provider.EngineLexicon, MemoryEstimateMB: 0, Accuracy: types.AccuracyMinimal, CPUCompatible: true},

		{Task: "emotion", Name: "emotion-large", Engine: provider.EngineLlama, MemoryEstimateMB: 1800, Accuracy: types.AccuracyHigh, CPUCompatible: false},
		{Task: "emotion", Name: "emotion-base", Engine: provider.EngineLlama, MemoryEstimateMB: 500, Accuracy: types.AccuracyMedium, CPUCompatible: true},
		{Task: "emotion", Name: "cue-rules", Engine: provider.EngineRules, MemoryEstimateMB: 0, Accuracy: types.AccuracyMinimal, CPUCompatible: true},

		{Task: "topics", Name: "topics-base", Engine: provider.EngineLlama, MemoryEstimateMB: 600, Accuracy: types.AccuracyMedium, CPUCompatible: true},
		{Task: "topics", Name: "keyword-match", Engine: provider.EngineKeywords, MemoryEstimateMB: 0, Accuracy: types.AccuracyMinimal, CPUCompatible: true},
	}
}
