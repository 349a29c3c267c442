package registry

import "adaptd/pkg/types"

// unknownModelError signals a task/name pair with no registered descriptor.
// A configuration error: surfaced, never retried.
type unknownModelError struct{ task, name string }

func (e unknownModelError) Error() string {
	if e.name == "" {
		return "unknown analysis type: " + e.task
	}
	return "unknown model: " + e.task + "/" + e.name
}

// ErrUnknownModel constructs an unknownModelError.
func ErrUnknownModel(task, name string) error { return unknownModelError{task: task, name: name} }

// IsUnknownModel reports whether err indicates a missing descriptor.
func IsUnknownModel(err error) bool {
	_, ok := err.(unknownModelError)
	return ok
}

// modelLoadError wraps a load failure with its descriptor so the caller can
// advance to the next candidate.
type modelLoadError struct {
	desc types.ModelDescriptor
	err  error
}

func (e modelLoadError) Error() string { return "load " + e.desc.Key() + ": " + e.err.Error() }
func (e modelLoadError) Unwrap() error { return e.err }

// ErrModelLoad constructs a modelLoadError.
func ErrModelLoad(desc types.ModelDescriptor, err error) error {
	return modelLoadError{desc: desc, err: err}
}

// IsModelLoad reports whether err is a recoverable load failure.
func IsModelLoad(err error) bool {
	_, ok := err.(modelLoadError)
	return ok
}
