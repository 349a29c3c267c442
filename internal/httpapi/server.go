// Package httpapi exposes the orchestrator over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"adaptd/pkg/types"
)

// maxBodyBytes caps request bodies for JSON endpoints.
const maxBodyBytes int64 = 1 << 20

// Service defines the methods required by the HTTP API layer.
type Service interface {
	AnalyzeText(ctx context.Context, text, analysisType string) (types.AnalysisOutcome, error)
	BatchAnalyze(ctx context.Context, texts []string, analysisType string) ([]types.AnalysisOutcome, error)
	GetSystemStatus() types.StatusResponse
	GetAvailableFeatures() types.FeaturesResponse
	SuggestOptimizations() types.Recommendations
	Ready() bool
}

// NewMux builds the router: /analyze, /analyze/batch, /status, /features,
// /optimizations, /healthz, /metrics.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(requestLogger)
	r.Use(metricsMiddleware)

	r.Post("/analyze", handleAnalyze(svc))
	r.Post("/analyze/batch", handleBatch(svc))
	r.Get("/status", handleStatus(svc))
	r.Get("/features", handleFeatures(svc))
	r.Get("/optimizations", handleOptimizations(svc))
	r.Get("/healthz", handleHealthz(svc))
	r.Handle("/metrics", promhttp.Handler())
	MountSwagger(r)
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, types.ErrorResponse{Error: "invalid JSON body", Code: http.StatusBadRequest})
		return false
	}
	return true
}

// handleAnalyze godoc
// @Summary      Analyze a text
// @Description  Runs one adaptive analysis with fallback. Always returns an outcome for well-formed input.
// @Accept       json
// @Produce      json
// @Param        request body types.AnalyzeRequest true "text and analysis type"
// @Success      200 {object} types.AnalysisOutcome
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /analyze [post]
func handleAnalyze(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.AnalyzeRequest
		if !decodeBody(w, r, &req) {
			return
		}
		out, err := svc.AnalyzeText(r.Context(), req.Text, req.Type)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleBatch godoc
// @Summary      Analyze a batch of texts
// @Description  Per-item failure isolation: each text gets an independent outcome.
// @Accept       json
// @Produce      json
// @Param        request body types.BatchRequest true "texts and analysis type"
// @Success      200 {object} types.BatchResponse
// @Failure      400 {object} types.ErrorResponse
// @Failure      503 {object} types.ErrorResponse
// @Router       /analyze/batch [post]
func handleBatch(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req types.BatchRequest
		if !decodeBody(w, r, &req) {
			return
		}
		outs, err := svc.BatchAnalyze(r.Context(), req.Texts, req.Type)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, types.BatchResponse{Outcomes: outs})
	}
}

// handleStatus godoc
// @Summary      System status
// @Produce      json
// @Success      200 {object} types.StatusResponse
// @Router       /status [get]
func handleStatus(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetSystemStatus())
	}
}

// handleFeatures godoc
// @Summary      Available analysis features at the current tier
// @Produce      json
// @Success      200 {object} types.FeaturesResponse
// @Router       /features [get]
func handleFeatures(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.GetAvailableFeatures())
	}
}

// handleOptimizations godoc
// @Summary      Optimization recommendations
// @Produce      json
// @Success      200 {object} types.Recommendations
// @Router       /optimizations [get]
func handleOptimizations(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.SuggestOptimizations())
	}
}

// handleHealthz godoc
// @Summary      Liveness/readiness probe
// @Produce      json
// @Success      200 {string} string "ok"
// @Failure      503 {object} types.ErrorResponse
// @Router       /healthz [get]
func handleHealthz(svc Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !svc.Ready() {
			writeJSON(w, http.StatusServiceUnavailable, types.ErrorResponse{Error: "not ready", Code: http.StatusServiceUnavailable})
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	}
}
