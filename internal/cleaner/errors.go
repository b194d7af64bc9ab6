package cleaner

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the cleaner.
var (
	// ErrInvalidConfig indicates a missing or malformed destination or option.
	ErrInvalidConfig = errors.New("invalid config")
	// ErrDeletionFailed indicates the deletion collaborator rejected the run.
	ErrDeletionFailed = errors.New("deletion failed")
	// ErrAborted indicates the input stream ended without an end-of-stream signal.
	ErrAborted = errors.New("stream aborted before end of input")
	// ErrAlreadyFinalized indicates Finalize was called more than once.
	ErrAlreadyFinalized = errors.New("stage already finalized")
)

// invalidConfigf builds an error wrapping ErrInvalidConfig.
func invalidConfigf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// DeletionError wraps a failure reported by the Deleter.
type DeletionError struct {
	Destination string
	DryRun      bool
	Err         error
}

// Error implements the error interface.
func (e *DeletionError) Error() string {
	mode := "delete"
	if e.DryRun {
		mode = "dry-run delete"
	}
	return fmt.Sprintf("%s in %s: %s: %v", ErrDeletionFailed, e.Destination, mode, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *DeletionError) Unwrap() []error {
	return []error{ErrDeletionFailed, e.Err}
}
