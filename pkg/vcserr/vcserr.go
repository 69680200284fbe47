// Package vcserr defines the error categories shared by every vcs package.
//
// Errors are created where the failure is detected with Errorf, which
// attaches one of the categories below. Callers may wrap them further with
// fmt.Errorf("...: %w", err); Category still finds the original category by
// walking the wrap chain.
package vcserr

import (
	"errors"

	"github.com/warpfork/go-errcat"
)

// ErrorCategory classifies a failure for callers and for CLI exit codes.
type ErrorCategory string

const (
	// ErrNotFound: missing object, missing repository, missing path.
	ErrNotFound ErrorCategory = "vcs-not-found"
	// ErrCorrupt: an object or metadata file could not be decoded.
	ErrCorrupt ErrorCategory = "vcs-corrupt"
	// ErrConflict: the repository lock is held by another process, or a
	// pointer moved underneath a compare-and-swap update.
	ErrConflict ErrorCategory = "vcs-conflict"
	// ErrInvalidInput: caller supplied something unusable.
	ErrInvalidInput ErrorCategory = "vcs-invalid-input"
)

// Errorf returns a categorized error.
func Errorf(category ErrorCategory, format string, args ...interface{}) error {
	return errcat.Errorf(category, format, args...)
}

// Category returns the category attached to err or to any error it wraps.
// It returns nil for nil errors and for errors that carry no category.
func Category(err error) interface{} {
	if err == nil {
		return nil
	}
	var ce errcat.Error
	if errors.As(err, &ce) {
		return ce.Category()
	}
	return nil
}

// Is reports whether err carries the given category.
func Is(err error, category ErrorCategory) bool {
	c, ok := Category(err).(ErrorCategory)
	return ok && c == category
}

// ExitCode maps an error to the process exit status used by the CLI.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch Category(err) {
	case ErrNotFound:
		return 2
	case ErrCorrupt:
		return 3
	case ErrConflict:
		return 4
	case ErrInvalidInput:
		return 5
	default:
		return 1
	}
}
