package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrForbidden          = errors.New("forbidden")
	ErrNotCompleted       = errors.New("payment request is not completed")
	ErrOperationFailed    = errors.New("operation failed")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid execution context")
)

// ValidationError reports malformed input. It matches ErrInvalidArgument with errors.Is.
type ValidationError struct {
	Fields []string
}

func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrInvalidArgument.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidArgument, strings.Join(e.Fields, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidArgument }

// TransitionError reports a status change that is not legal from the current status,
// including the case where another writer moved the request first.
type TransitionError struct {
	From   string
	To     string
	Reason string
}

func (e *TransitionError) Error() string {
	msg := fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition, e.From, e.To)
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

// Reasons carried by TransitionError.
const (
	ReasonIllegalEdge       = "edge not allowed"
	ReasonIncompleteDetails = "payment details incomplete"
	ReasonConflict          = "request was modified concurrently"
)
