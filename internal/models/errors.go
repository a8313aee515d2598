package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("fingerprint conflict")
	ErrValidation = errors.New("validation failed")
)

type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// ConflictError is returned when a write would replace a stored fingerprint
// with a different one.
type ConflictError struct {
	SubmissionID string
	Existing     Fingerprint
	Proposed     Fingerprint
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("submission %s already has fingerprint %s, refusing %s",
		e.SubmissionID, e.Existing.Key(), e.Proposed.Key())
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// RetrievalError means the blob behind a submission could not be read.
type RetrievalError struct {
	Location string
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("failed to retrieve %q: %v", e.Location, e.Err)
}

func (e *RetrievalError) Unwrap() error {
	return e.Err
}
