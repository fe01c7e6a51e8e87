// Package errx wraps sentinel errors with an underlying cause while keeping
// errors.Is/As working against the sentinel.
package errx

import "fmt"

// Wrap attaches cause to sentinel so that errors.Is holds against both the
// sentinel and the underlying cause, matching the teacher's own
// `fmt.Errorf("%w: %w", ErrX, err)` idiom used throughout its packages
// (e.g. pkg/image/import.go).
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
