package orchestrator

import (
	"context"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"adaptd/internal/provider"
	"adaptd/internal/registry"
	"adaptd/pkg/types"
)

// AnalyzeText runs one analysis with the cheapest fitting model, falling
// back along the candidate chain on load or inference failure. For a
// registered type and well-formed input it always returns an outcome; the
// terminal heuristic candidate has no load dependency and cannot fail.
// The error return is reserved for unknown analysis types and lifecycle
// violations, which are caller bugs rather than degradation.
func (o *Orchestrator) AnalyzeText(ctx context.Context, text, analysisType string) (types.AnalysisOutcome, error) {
	if err := o.stateMu.beginCall(); err != nil {
		return types.AnalysisOutcome{}, err
	}
	defer o.stateMu.endCall()
	if !o.reg.HasTask(analysisType) {
		return types.AnalysisOutcome{}, registry.ErrUnknownModel(analysisType, "")
	}
	return o.analyzeOne(ctx, text, analysisType), nil
}

// BatchAnalyze processes texts with bounded concurrency and per-item
// failure isolation: one item exhausting its fallback chain never aborts
// its siblings. The memory budget holds across in-flight items because
// loads still serialize through the registry and pressure is re-checked
// after each one.
func (o *Orchestrator) BatchAnalyze(ctx context.Context, texts []string, analysisType string) ([]types.AnalysisOutcome, error) {
	if err := o.stateMu.beginCall(); err != nil {
		return nil, err
	}
	defer o.stateMu.endCall()
	if !o.reg.HasTask(analysisType) {
		return nil, registry.ErrUnknownModel(analysisType, "")
	}
	outcomes := make([]types.AnalysisOutcome, len(texts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.batchLimit)
	for i, text := range texts {
		i, text := i, text
		g.Go(func() error {
			outcomes[i] = o.analyzeOne(gctx, text, analysisType)
			return nil
		})
	}
	_ = g.Wait() // workers never return errors; outcomes carry the failures
	return outcomes, nil
}

func (o *Orchestrator) analyzeOne(ctx context.Context, text, analysisType string) types.AnalysisOutcome {
	start := time.Now()
	s := o.sess.Load()
	if strings.TrimSpace(text) == "" {
		return types.AnalysisOutcome{
			Success:          false,
			MethodUsed:       "none",
			Error:            "empty text",
			ProcessingTimeMS: time.Since(start).Milliseconds(),
		}
	}

	candidates, err := o.reg.ResolveCandidates(analysisType)
	if err != nil || len(candidates) == 0 {
		return types.AnalysisOutcome{
			Success:          false,
			MethodUsed:       "none",
			Error:            "no candidates for " + analysisType,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
		}
	}

	// Under unrelievable critical pressure new loads are refused; the
	// request is served by the heuristic floor instead.
	degraded := false
	if s.mon.Pressure() >= types.PressureHigh {
		if res := s.cleaner.Emergency(); !res.Success {
			degraded = true
		}
	}

	fallbackUsed := false
	var notes []string
	for i, cand := range candidates {
		if degraded && !provider.Heuristic(cand.Engine) {
			fallbackUsed = true
			continue
		}
		h, err := o.reg.Acquire(ctx, cand)
		if err != nil {
			fallbackUsed = true
			notes = append(notes, err.Error())
			continue
		}
		// A load may transiently overshoot the budget; re-evaluate now.
		// The just-acquired model is pinned and cannot be evicted.
		if s.mon.Pressure() >= types.PressureHigh {
			s.cleaner.Emergency()
		}
		pred, err := h.Provider().Predict(ctx, text)
		h.Release()
		if err != nil {
			fallbackUsed = true
			notes = append(notes, cand.Key()+": "+err.Error())
			continue
		}
		if i > 0 || degraded {
			fallbackUsed = true
		}
		out := types.AnalysisOutcome{
			Success:          true,
			Payload:          payloadFor(pred),
			Confidence:       clamp01(pred.Confidence),
			MethodUsed:       cand.Key(),
			FallbackUsed:     fallbackUsed,
			ProcessingTimeMS: time.Since(start).Milliseconds(),
		}
		if degraded {
			out.Error = "degraded: memory pressure critical, model loads refused"
		}
		observeAnalysis(analysisType, fallbackUsed, true, time.Since(start))
		return out
	}

	// Chain exhausted. By construction the heuristic floor should have
	// served; reaching here means malformed input slipped past validation
	// or a total subsystem failure.
	observeAnalysis(analysisType, true, false, time.Since(start))
	return types.AnalysisOutcome{
		Success:          false,
		MethodUsed:       "none",
		FallbackUsed:     true,
		Error:            "all candidates failed: " + strings.Join(notes, "; "),
		ProcessingTimeMS: time.Since(start).Milliseconds(),
	}
}

func payloadFor(pred provider.Prediction) map[string]any {
	payload := map[string]any{"label": pred.Label, "score": pred.Score}
	for k, v := range pred.Details {
		payload[k] = v
	}
	return payload
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func observeAnalysis(task string, fallback, success bool, d time.Duration) {
	analysesTotal.WithLabelValues(task, strconv.FormatBool(fallback), strconv.FormatBool(success)).Inc()
	analysisDuration.WithLabelValues(task).Observe(d.Seconds())
}
