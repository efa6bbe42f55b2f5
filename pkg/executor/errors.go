package executor

import (
	"context"
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	ErrTransient        = errors.New("transient network error")
	ErrTimeout          = errors.New("request timed out")
	ErrAuthorization    = errors.New("authorization failed")
	ErrValidation       = errors.New("validation failed")
	ErrNotFound         = errors.New("record not found")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrQueueOverflow    = errors.New("retry budget exhausted")
)

// Code is a stable error code callers can branch on without string matching.
type Code string

const (
	CodeTransient        Code = "transient"
	CodeTimeout          Code = "timeout"
	CodeAuthorization    Code = "authorization"
	CodeValidation       Code = "validation"
	CodeNotFound         Code = "not_found"
	CodeUnknownOperation Code = "unknown_operation"
	CodeQueueOverflow    Code = "queue_overflow"
	CodeInternal         Code = "internal"
)

// OperationError provides structured error information for remote operations.
type OperationError struct {
	Op         string // Operation that failed (e.g., "select", "replay")
	Collection string // Target collection (if applicable)
	Code       Code   // Stable code for caller branching
	Cause      error  // Underlying error
}

// Error implements the error interface.
func (e *OperationError) Error() string {
	if e.Collection != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Collection, e.Cause)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying cause for error chain support.
func (e *OperationError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target error matches this error or its cause.
func (e *OperationError) Is(target error) bool {
	if target == nil {
		return false
	}
	return errors.Is(e.Cause, target)
}

// TransientError wraps a cause as a retryable network failure.
func TransientError(op string, cause error) error {
	return &OperationError{Op: op, Code: CodeTransient, Cause: fmt.Errorf("%w: %v", ErrTransient, cause)}
}

// TimeoutError marks an attempt that exceeded its deadline.
func TimeoutError(op string) error {
	return &OperationError{Op: op, Code: CodeTimeout, Cause: ErrTimeout}
}

// AuthorizationError marks a failure the caller cannot fix by retrying.
func AuthorizationError(op string, cause error) error {
	return &OperationError{Op: op, Code: CodeAuthorization, Cause: fmt.Errorf("%w: %v", ErrAuthorization, cause)}
}

// ValidationError marks caller input that the remote service rejected.
func ValidationError(op string, cause error) error {
	return &OperationError{Op: op, Code: CodeValidation, Cause: fmt.Errorf("%w: %v", ErrValidation, cause)}
}

// NotFoundError marks a lookup for a record that exists nowhere, remote or
// local.
func NotFoundError(op, collection, id string) error {
	return &OperationError{Op: op, Collection: collection, Code: CodeNotFound,
		Cause: fmt.Errorf("%w: %s/%s", ErrNotFound, collection, id)}
}

// UnknownOperationError marks a dispatch miss; the message names what is allowed.
func UnknownOperationError(op string, allowed string) error {
	return &OperationError{Op: op, Code: CodeUnknownOperation,
		Cause: fmt.Errorf("%w: allowed methods: %s", ErrUnknownOperation, allowed)}
}

// QueueOverflowError marks a pending operation that exhausted its replay budget.
func QueueOverflowError(op, collection string, attempts int) error {
	return &OperationError{Op: op, Collection: collection, Code: CodeQueueOverflow,
		Cause: fmt.Errorf("%w after %d attempts", ErrQueueOverflow, attempts)}
}

// IsRetryable reports whether the executor should retry after this error.
// Only transient network failures and timeouts qualify.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrTransient) || errors.Is(err, ErrTimeout) {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// CodeOf extracts the stable error code; CodeInternal for unclassified errors.
func CodeOf(err error) Code {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr.Code
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	case errors.Is(err, ErrTransient):
		return CodeTransient
	case errors.Is(err, ErrAuthorization):
		return CodeAuthorization
	case errors.Is(err, ErrValidation):
		return CodeValidation
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	}
	return CodeInternal
}
