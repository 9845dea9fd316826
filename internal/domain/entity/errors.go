package entity

import (
	"errors"
	"fmt"
	"strings"
)

// MalformedObservationError is returned when an observation lacks a field that
// nothing downstream can be derived without.
type MalformedObservationError struct {
	Field  string
	Reason string
}

func (e *MalformedObservationError) Error() string {
	return fmt.Sprintf("malformed observation: field %q %s", e.Field, e.Reason)
}

// UpstreamFetchError is a non-200 response, an undecodable body or a transport failure from the weather API.
// StatusCode is 0 for transport failures.
type UpstreamFetchError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamFetchError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("weather upstream unavailable: %v", e.Err)
	}
	return fmt.Sprintf("weather upstream error: status %d - %s", e.StatusCode, e.Body)
}

func (e *UpstreamFetchError) Unwrap() error {
	return e.Err
}

// ModelLoadError means the model serving boundary could not provide the model.
type ModelLoadError struct {
	ModelURI string
	Err      error
}

func (e *ModelLoadError) Error() string {
	return fmt.Sprintf("failed to load model %s: %v", e.ModelURI, e.Err)
}

func (e *ModelLoadError) Unwrap() error {
	return e.Err
}

// UploadError is a storage failure after the batch was staged locally.
// StagedPath is left on disk for manual recovery.
type UploadError struct {
	Key        string
	StagedPath string
	Err        error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("failed to upload %s to %s: %v", e.StagedPath, e.Key, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// RunError aggregates per-location failures of an isolated run.
type RunError struct {
	RunID    string
	Failures []LocationFailure
}

func (e *RunError) Error() string {
	names := make([]string, len(e.Failures))
	for i, failure := range e.Failures {
		names[i] = failure.Location.Name
	}
	return fmt.Sprintf("run %s: %d location(s) failed: %s", e.RunID, len(e.Failures), strings.Join(names, ", "))
}

// Unwrap exposes every location error to errors.Is and errors.As.
func (e *RunError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, failure := range e.Failures {
		if failure.Err != nil {
			errs = append(errs, failure.Err)
		}
	}
	return errs
}

// ErrInvalidRunConfig marks a RunConfig that failed validation.
var ErrInvalidRunConfig = errors.New("invalid run config")
