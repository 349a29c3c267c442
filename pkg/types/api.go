package types

// AnalyzeRequest is the payload for POST /analyze.
type AnalyzeRequest struct {
	// Text to analyze.
	// example: I love this product
	Text string `json:"text" example:"I love this product"`
	// Analysis type to run (must be a registered task).
	// example: sentiment
	Type string `json:"type" example:"sentiment"`
}

// BatchRequest is the payload for POST /analyze/batch.
type BatchRequest struct {
	// Texts to analyze; each item gets an independent outcome.
	Texts []string `json:"texts"`
	// Analysis type to run for every item.
	// example: sentiment
	Type string `json:"type" example:"sentiment"`
}

// AnalysisOutcome is the result of one analysis call. Success is false only
// for malformed input or total subsystem failure; degraded paths are
// reported via FallbackUsed and MethodUsed instead.
type AnalysisOutcome struct {
	// Whether a usable result was produced.
	// example: true
	Success bool `json:"success"`
	// Task-specific result payload (label, scores, matches...).
	Payload map[string]any `json:"payload,omitempty"`
	// Confidence in [0,1].
	// example: 0.92
	Confidence float64 `json:"confidence"`
	// Name of the model or heuristic that produced the result.
	// example: sentiment/transformer-base
	MethodUsed string `json:"method_used"`
	// True when the preferred candidate was not used.
	// example: false
	FallbackUsed bool `json:"fallback_used"`
	// Wall-clock processing time in milliseconds.
	// example: 12
	ProcessingTimeMS int64 `json:"processing_time_ms"`
	// Error or degradation note, if any.
	Error string `json:"error,omitempty"`
}

// BatchResponse wraps the per-item outcomes of a batch call.
type BatchResponse struct {
	Outcomes []AnalysisOutcome `json:"outcomes"`
}

// InitResult is returned once initialization completes.
type InitResult struct {
	// Lifecycle status after init.
	// example: ready
	Status string `json:"status" example:"ready"`
	// Classified hardware tier.
	// example: intermediate
	Tier Tier `json:"tier" example:"intermediate"`
	// Human-readable reason citing the matched classification rule.
	TierReason string `json:"tier_reason,omitempty"`
	// Memory ceiling for resident models in MB.
	// example: 6144
	MemoryLimitMB int `json:"memory_limit_mb" example:"6144"`
	// Analysis types with at least one fitting candidate at this tier.
	AvailableFeatures []string `json:"available_features"`
}

// LoadedModelStatus summarizes one resident model for /status.
type LoadedModelStatus struct {
	// Task/name key of the model.
	// example: sentiment/transformer-base
	Key string `json:"key" example:"sentiment/transformer-base"`
	// Measured memory footprint in MB.
	// example: 480
	FootprintMB int `json:"footprint_mb" example:"480"`
	// Last time this model served a request (unix seconds).
	// example: 1700000000
	LastUsed int64 `json:"last_used_unix" example:"1700000000"`
	// In-flight calls currently holding the model.
	// example: 0
	RefCount int `json:"ref_count" example:"0"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	// Orchestrator lifecycle status.
	// example: ready
	Status string `json:"status" example:"ready"`
	// Classified hardware tier.
	// example: basic
	Tier Tier `json:"current_tier" example:"basic"`
	// Uptime since initialization in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Current memory accounting and pressure.
	Memory MemoryReading `json:"memory_info"`
	// Resident models.
	LoadedModels []LoadedModelStatus `json:"loaded_models"`
	// Total model loads since init.
	// example: 12
	LoadsTotal uint64 `json:"loads_total" example:"12"`
	// Total evictions since init.
	// example: 3
	EvictionsTotal uint64 `json:"evictions_total" example:"3"`
}

// FeatureStatus reports availability of one analysis type.
type FeatureStatus struct {
	// Whether at least one candidate fits the current tier.
	// example: true
	Available bool `json:"available"`
	// Best method that would serve the type right now.
	// example: sentiment/transformer-base
	Method string `json:"method,omitempty"`
}

// FeaturesResponse is returned by GET /features.
type FeaturesResponse struct {
	Tier              Tier                     `json:"current_tier"`
	AvailableFeatures []string                 `json:"available_features"`
	FeatureAnalysis   map[string]FeatureStatus `json:"feature_analysis"`
}

// Suggestion is one optimization recommendation.
type Suggestion struct {
	// Priority of the suggestion (high, medium, low).
	// example: high
	Priority string `json:"priority" example:"high"`
	// What to do.
	Description string `json:"description"`
	// Expected effect of acting on it.
	ExpectedImprovement string `json:"expected_improvement"`
}

// Recommendations is returned by GET /optimizations.
type Recommendations struct {
	Tier Tier `json:"current_tier"`
	// Overall system score in [0,100].
	SystemScore struct {
		Overall int `json:"overall"`
	} `json:"system_score"`
	Suggestions []Suggestion `json:"suggestions"`
	// Resources still missing for the next tier up; empty at the top tier.
	NextTierRequirements map[string]string `json:"next_tier_requirements,omitempty"`
	// External processes competing for memory, if any.
	Conflicts []ProcessInfo `json:"conflicts,omitempty"`
}

// ErrorResponse is a consistent JSON error payload.
type ErrorResponse struct {
	// Error message.
	// example: unknown analysis type
	Error string `json:"error" example:"unknown analysis type"`
	// HTTP status code.
	// example: 400
	Code int `json:"code" example:"400"`
}
