package export

import (
	"errors"
	"fmt"
)

// ErrNotDirectory is returned by Discover when the input path is not a directory.
var ErrNotDirectory = errors.New("not a directory")

// ErrDuplicateMember reports an object that names the same member twice.
var ErrDuplicateMember = errors.New("duplicate object member")

// ErrInvalidUTF8 reports content that is not UTF-8 encoded JSON text.
var ErrInvalidUTF8 = errors.New("invalid UTF-8")

// MalformedInputError reports an export file that is not valid JSON or does
// not hold records. It is recoverable: the file is skipped.
type MalformedInputError struct {
	Path   string
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("malformed export file %s: %s", e.Path, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// ErrorKind classifies the error for run history.
func (e *MalformedInputError) ErrorKind() string { return "malformed_input" }

func malformed(path, reason string, err error) *MalformedInputError {
	return &MalformedInputError{Path: path, Reason: reason, Err: err}
}
