package restql

import (
	"errors"
	"fmt"
)

// Standard sentinel errors for common operations.
var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("restql: record not found")
)

// NotFoundError represents an error when a record is not found.
type NotFoundError struct {
	table string
	id    any
}

// Error returns the error string.
func (e *NotFoundError) Error() string {
	if e.id != nil {
		return fmt.Sprintf("restql: %s not found (id=%v)", e.table, e.id)
	}
	return fmt.Sprintf("restql: %s not found", e.table)
}

// Is reports whether the target error matches NotFoundError.
// This allows errors.Is(notFoundErr, ErrNotFound) to return true.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// Table returns the table the lookup ran against.
func (e *NotFoundError) Table() string { return e.table }

// ID returns the ID that was searched for, if available.
func (e *NotFoundError) ID() any { return e.id }

// IsNotFound returns true if the error is a NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}

// ValidationError is the error form of an invalid validation result: a
// user-correctable input problem. The message is safe to surface to the
// caller verbatim. It is returned, never logged as a fault.
type ValidationError struct {
	Message string
}

// Error returns the error string.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("restql: invalid request: %s", e.Message)
}

// NewValidationError returns a ValidationError with the given message.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// IsValidation returns true if the error is a ValidationError.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	var e *ValidationError
	return errors.As(err, &e)
}

// QueryError wraps a read failure with its originating context: the
// table, the operation, and the request id assigned to the call.
type QueryError struct {
	Table     string
	Op        string // "find", "find-one", "count", "schema"
	RequestID string
	Err       error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	return fmt.Sprintf("restql: querying %s (%s) [request %s]: %v", e.Table, e.Op, e.RequestID, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error { return e.Err }

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a write failure with its originating context.
type MutationError struct {
	Table     string
	Op        string // "create", "update", "delete"
	RequestID string
	Err       error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("restql: %s %s [request %s]: %v", e.Op, e.Table, e.RequestID, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error { return e.Err }

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

// ReshapeError represents a malformed response shape: a row column that
// does not belong to the schema it was validated against, after joins
// were un-flattened. It aborts the whole response rather than returning
// partially-coerced data.
type ReshapeError struct {
	Table string
	Field string
	Err   error
}

// Error returns the error string.
func (e *ReshapeError) Error() string {
	return fmt.Sprintf("restql: reshaping %s: field %q: %v", e.Table, e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ReshapeError) Unwrap() error { return e.Err }

// IsReshapeError returns true if the error is a ReshapeError.
func IsReshapeError(err error) bool {
	if err == nil {
		return false
	}
	var e *ReshapeError
	return errors.As(err, &e)
}
