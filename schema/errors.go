package schema

import (
	"errors"
	"fmt"
)

// ErrNotFound is the sentinel matched by schema not-found errors.
var ErrNotFound = errors.New("schema: table not found")

// NotFoundError is raised when introspection finds no columns for a table
// in the catalog. It is a hard failure: a request naming a table that does
// not exist indicates a fault upstream of user input validation.
type NotFoundError struct {
	Table string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("schema: table %q not found", e.Table)
}

// Is reports whether the target matches ErrNotFound.
func (e *NotFoundError) Is(err error) bool {
	return err == ErrNotFound
}

// IsNotFound reports whether the error is a schema not-found failure.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *NotFoundError
	return errors.As(err, &e) || errors.Is(err, ErrNotFound)
}
