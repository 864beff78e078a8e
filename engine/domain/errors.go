package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy. Every failure crossing the service boundary maps onto one
// of these sentinels so callers can pick a response without knowing the
// failing dependency.
var (
	// ErrNotFound means the requested course or file does not exist.
	ErrNotFound = errors.New("not found")
	// ErrServiceUnavailable means a model dependency is not configured.
	ErrServiceUnavailable = errors.New("ai service unavailable")
	// ErrEmbedding means an upstream embedding call failed.
	ErrEmbedding = errors.New("embedding failed")
	// ErrGeneration means an upstream generation call failed.
	ErrGeneration = errors.New("generation failed")
	// ErrValidation means the request was malformed and was rejected before
	// any external call.
	ErrValidation = errors.New("invalid request")
)

// ValidationError wraps ErrValidation with the offending field.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request: %s: %s (value=%q)", e.Field, e.Reason, e.Value)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// StageError records which pipeline stage a failure came from. The answering
// orchestrator wraps every dependency failure in one of these so the HTTP
// boundary can surface the stage name without leaking internal error types.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// NewStageError wraps err with the stage name.
func NewStageError(stage string, err error) *StageError {
	return &StageError{Stage: stage, Err: err}
}
