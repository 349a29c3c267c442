package httpapi

import (
	"net/http"

	"adaptd/internal/orchestrator"
	"adaptd/internal/registry"
	"adaptd/pkg/types"
)

// writeServiceError maps service errors onto HTTP status codes:
// unknown analysis type -> 400 (configuration error, not retried),
// lifecycle violations -> 503, anything else -> 500.
func writeServiceError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case registry.IsUnknownModel(err):
		code = http.StatusBadRequest
	case orchestrator.IsNotReady(err), orchestrator.IsStopped(err):
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, types.ErrorResponse{Error: err.Error(), Code: code})
}
