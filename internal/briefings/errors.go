package briefings

import (
	"errors"
	"fmt"
)

// ErrNotFound means neither a stored briefing nor a fallback could be produced,
// or the requested row does not exist.
var ErrNotFound = errors.New("briefing not found")

// ErrMalformedRecord is a briefing document that fails schema validation on
// its way into storage. Records already stored are normalized with defaults
// instead.
var ErrMalformedRecord = errors.New("malformed briefing record")

// StorageError is a failed read or write against the database. Callers may
// retry the operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// RequestCreationFailedError means the briefing request row could not be
// written. Nothing else was attempted.
type RequestCreationFailedError struct {
	Err error
}

func (e *RequestCreationFailedError) Error() string {
	return fmt.Sprintf("failed to create briefing request: %v", e.Err)
}

func (e *RequestCreationFailedError) Unwrap() error { return e.Err }

// GenerationFailedError means the request exists but its briefing could not
// be generated or stored. The request stays in generating state and can be
// completed later with Retry.
type GenerationFailedError struct {
	RequestID string
	Err       error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("failed to generate briefing for request %s: %v", e.RequestID, e.Err)
}

func (e *GenerationFailedError) Unwrap() error { return e.Err }

// ValidationError reports invalid user input
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid briefing request: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }
