package model

import (
	"errors"
	"fmt"
)

// ErrorKind names one failure class a requester can observe
type ErrorKind string

const (
	ErrInvalidInput       ErrorKind = "InvalidInput"
	ErrUnsupportedContent ErrorKind = "UnsupportedContent"
	ErrProbeFailed        ErrorKind = "ProbeFailed"
	ErrSessionExpired     ErrorKind = "SessionExpired"
	ErrArtifactTooLarge   ErrorKind = "ArtifactTooLarge"
	ErrArtifactMissing    ErrorKind = "ArtifactMissing"
	ErrEngineFailure      ErrorKind = "EngineFailure"
	ErrDeliveryFailed     ErrorKind = "DeliveryFailed"
)

// JobError is a classified failure. Detail is internal and only logged.
type JobError struct {
	Kind   ErrorKind
	Detail string
	Size   int64 // actual artifact size for ArtifactTooLarge
	Err    error
}

// NewJobError wraps err with a failure kind
func NewJobError(kind ErrorKind, err error) *JobError {
	je := &JobError{Kind: kind, Err: err}
	if err != nil {
		je.Detail = err.Error()
	}
	return je
}

func (e *JobError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *JobError) Unwrap() error {
	return e.Err
}

// KindOf extracts the failure kind from err, defaulting to EngineFailure
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var je *JobError
	if errors.As(err, &je) {
		return je.Kind
	}
	return ErrEngineFailure
}

// AsJobError returns err as a *JobError, classifying unknown errors with fallback
func AsJobError(err error, fallback ErrorKind) *JobError {
	var je *JobError
	if errors.As(err, &je) {
		return je
	}
	return NewJobError(fallback, err)
}
