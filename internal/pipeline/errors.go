package pipeline

import (
	"context"
	"errors"
	"fmt"

	"replay/internal/export"
)

// ErrLocked is returned when another run holds the output lock.
var ErrLocked = errors.New("output is locked by another replay run")

// MalformedInputError is the per-file, recoverable parse failure.
type MalformedInputError = export.MalformedInputError

// NoValidInputError reports that no export file produced a record. It is
// fatal and no output is written.
type NoValidInputError struct {
	Dir          string
	FilesSeen    int
	FilesSkipped int
}

func (e *NoValidInputError) Error() string {
	if e.FilesSeen == 0 {
		return fmt.Sprintf("no valid input: no export files found in %s", e.Dir)
	}
	return fmt.Sprintf("no valid input: %d export file(s) in %s produced no records (%d malformed)", e.FilesSeen, e.Dir, e.FilesSkipped)
}

// ErrorKind classifies the error for run history.
func (e *NoValidInputError) ErrorKind() string { return "no_valid_input" }

// WriteFailureError reports that the clean dataset could not be written.
type WriteFailureError struct {
	Path string
	Err  error
}

func (e *WriteFailureError) Error() string {
	return fmt.Sprintf("write clean dataset %s: %v", e.Path, e.Err)
}

func (e *WriteFailureError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for run history.
func (e *WriteFailureError) ErrorKind() string { return "write_failure" }

// ErrorClassifier is implemented by errors that name their failure class.
type ErrorClassifier interface {
	ErrorKind() string
}

// ErrorKind returns the classification of err, "locked", "canceled", or "error".
func ErrorKind(err error) string {
	var classifier ErrorClassifier
	switch {
	case err == nil:
		return ""
	case errors.As(err, &classifier):
		return classifier.ErrorKind()
	case errors.Is(err, ErrLocked):
		return "locked"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
