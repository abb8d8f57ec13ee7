package triage

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable means the backend is not configured or a
	// prerequisite (credential, model state) is missing.
	ErrBackendUnavailable = errors.New("triage backend unavailable")

	// ErrBackendFailed matches every *BackendError.
	ErrBackendFailed = errors.New("triage backend failed")

	// ErrTraining means a retrain request could not be honored.
	ErrTraining = errors.New("triage model training failed")
)

// Backend is a model that may classify an alert better than the heuristic but can fail.
// Classify returns ErrBackendUnavailable or a *BackendError on failure.
type Backend interface {
	Name() string
	Classify(ctx context.Context, text AlertText) (Result, error)
}

// BackendError is a recoverable backend failure: a failed or timed out call,
// or a malformed or out-of-range response.
type BackendError struct {
	Backend string
	Reason  string
	Err     error
}

// NewBackendError wraps err as a failure of the named backend.
func NewBackendError(backend, reason string, err error) *BackendError {
	return &BackendError{Backend: backend, Reason: reason, Err: err}
}

func (e *BackendError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s backend: %s", e.Backend, e.Reason)
	}
	return fmt.Sprintf("%s backend: %s: %v", e.Backend, e.Reason, e.Err)
}

// Unwrap returns the underlying cause.
func (e *BackendError) Unwrap() error { return e.Err }

// Is reports whether target is ErrBackendFailed.
func (e *BackendError) Is(target error) bool { return target == ErrBackendFailed }

// Candidate is a backend variant that configuration may switch on.
type Candidate struct {
	Enabled bool
	Build   func() (Backend, error)
}

// SelectBackend resolves the single active backend for a deployment: remote
// when enabled, else local when enabled, else none (nil, always heuristic).
func SelectBackend(remote, local Candidate) (Backend, error) {
	for _, c := range []Candidate{remote, local} {
		if !c.Enabled || c.Build == nil {
			continue
		}
		b, err := c.Build()
		if err != nil {
			return nil, err
		}
		if b == nil {
			return nil, nil
		}
		return b, nil
	}
	return nil, nil
}
