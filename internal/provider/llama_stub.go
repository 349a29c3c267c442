//go:build !llama

package provider

import (
	"fmt"

	"adaptd/pkg/types"
)

// Stub compiled when the 'llama' build tag is not set. Keeps default builds
// free of CGO; load attempts fail with ErrUnavailable so the fallback chain
// advances to the next candidate.
func newLlama(desc types.ModelDescriptor, _, _ int) (Provider, error) {
	return nil, fmt.Errorf("%s: built without llama support: %w", desc.Key(), ErrUnavailable)
}
