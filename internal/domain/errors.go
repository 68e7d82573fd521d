package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrConnectivity signals that the search engine could not be reached.
	ErrConnectivity = errors.New("search engine unreachable")
	// ErrIndexNotFound signals a missing index.
	ErrIndexNotFound = errors.New("index not found")
	// ErrIndexBusy signals an index held open by another process.
	ErrIndexBusy = errors.New("index is locked by another process")
	// ErrValidation signals an invalid request.
	ErrValidation = errors.New("invalid request")
	// ErrUnexpectedResponse signals an engine response that could not be interpreted.
	ErrUnexpectedResponse = errors.New("unexpected engine response")
)

// EngineError wraps an engine failure with the operation that produced it.
type EngineError struct {
	Op  string
	Err error
}

func (e *EngineError) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *EngineError) Unwrap() error { return e.Err }

// NewEngineError wraps err with the operation name.
func NewEngineError(op string, err error) error {
	return &EngineError{Op: op, Err: err}
}

// ValidationError describes a rejected request field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError creates a validation error for field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
