package main

import (
	"errors"
	"fmt"
	"strings"

	"replay/internal/config"
	"replay/internal/pipeline"
	"replay/internal/preflight"
)

// Exit codes let scripts tell "nothing to import" apart from real failures.
const (
	exitFailure      = 1
	exitPreflight    = 2
	exitNoValidInput = 3
	exitWriteFailure = 4
	exitLocked       = 5
)

// preflightError reports failed preflight checks.
type preflightError struct {
	failed []preflight.Result
}

func (e *preflightError) Error() string {
	parts := make([]string, 0, len(e.failed))
	for _, r := range e.failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return "preflight failed: " + strings.Join(parts, "; ")
}

func exitCode(err error) int {
	var (
		pre      *preflightError
		noValid  *pipeline.NoValidInputError
		writeErr *pipeline.WriteFailureError
	)
	switch {
	case errors.As(err, &pre), errors.Is(err, config.ErrPathsMissing):
		return exitPreflight
	case errors.As(err, &noValid):
		return exitNoValidInput
	case errors.As(err, &writeErr):
		return exitWriteFailure
	case errors.Is(err, pipeline.ErrLocked):
		return exitLocked
	default:
		return exitFailure
	}
}
