package main

import (
	"errors"

	"github.com/matsen/citegraph/internal/auth"
	"github.com/matsen/citegraph/internal/config"
	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
)

// Exit codes
const (
	ExitSuccess     = 0 // Success
	ExitError       = 1 // General error (runtime failure, store failure)
	ExitConfigError = 2 // Configuration error (invalid config, unusable paths)
	ExitDataError   = 3 // Invalid input (bad IDs, empty fields, self-citations)
	ExitNotFound    = 4 // Node, topic or work not found
	ExitConflict    = 5 // Already exists (node in topic, topic, username)
	ExitAuthError   = 6 // Bad credentials or not an admin
	ExitAPIError    = 7 // OpenAlex unavailable after retries
)

// exitCodeFor maps an error to its exit code.
func exitCodeFor(err error) int {
	switch {
	case err == nil:
		return ExitSuccess
	case errors.Is(err, config.ErrInvalidConfig):
		return ExitConfigError
	case errors.Is(err, paper.ErrEmptyExternalID),
		errors.Is(err, paper.ErrEmptyLabel),
		errors.Is(err, paper.ErrEmptySourceID),
		errors.Is(err, paper.ErrEmptyTargetID),
		errors.Is(err, paper.ErrSelfEdge),
		errors.Is(err, openalex.ErrInvalidID),
		errors.Is(err, auth.ErrEmptyUsername),
		errors.Is(err, auth.ErrEmptyPassword):
		return ExitDataError
	case auth.IsUnauthenticated(err), auth.IsForbidden(err):
		return ExitAuthError
	case paper.IsNotFound(err), openalex.IsNotFound(err):
		return ExitNotFound
	case paper.IsConflict(err), errors.Is(err, auth.ErrUserExists):
		return ExitConflict
	case openalex.IsUpstream(err):
		return ExitAPIError
	default:
		return ExitError
	}
}

// exitOnError exits with the mapped code when err is non-nil.
func exitOnError(err error, format string, args ...any) {
	if err == nil {
		return
	}
	args = append(args, err)
	exitWithError(exitCodeFor(err), format+": %v", args...)
}
