package database

import (
	"errors"
	"fmt"
)

// ErrUnavailable marks failures of the storage layer: pool exhaustion,
// connection loss, query errors, or a context deadline hit while waiting
// on a connection. Callers test for it with errors.Is.
var ErrUnavailable = errors.New("storage unavailable")

// Unavailable wraps err so it carries ErrUnavailable in its chain while
// preserving the underlying cause.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrUnavailable, err)
}
