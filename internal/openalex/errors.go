package openalex

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the OpenAlex client.
var (
	// ErrUpstream indicates the lookup failed after retries or returned an unusable response.
	ErrUpstream = errors.New("OpenAlex upstream error")

	// ErrInvalidResponse indicates an unparseable API response.
	ErrInvalidResponse = errors.New("invalid response from OpenAlex")

	// ErrInvalidID indicates an identifier that is not an OpenAlex work ID.
	ErrInvalidID = errors.New("invalid OpenAlex work ID")
)

// UpstreamError describes a failed upstream operation.
type UpstreamError struct {
	Op         string // "search", "work", "doi"
	ID         string // Work ID, DOI or query, for context
	StatusCode int    // Last HTTP status; 0 if no response was received
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("OpenAlex %s %q failed (status %d): %v", e.Op, e.ID, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("OpenAlex %s %q failed: %v", e.Op, e.ID, e.Err)
}

// Unwrap exposes both ErrUpstream and the underlying cause.
func (e *UpstreamError) Unwrap() []error {
	return []error{ErrUpstream, e.Err}
}

// statusError is one non-2xx attempt.
type statusError struct {
	StatusCode int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// IsUpstream returns true if the error came from the upstream lookup service.
func IsUpstream(err error) bool {
	return errors.Is(err, ErrUpstream)
}

// IsNotFound returns true if the upstream reported the work does not exist.
func IsNotFound(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited returns true if the final attempt was rejected with 429.
func IsRateLimited(err error) bool {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr.StatusCode == http.StatusTooManyRequests
	}
	return false
}
