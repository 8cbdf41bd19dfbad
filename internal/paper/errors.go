package paper

import (
	"errors"
	"fmt"
)

// Common errors returned by graph operations.
var (
	// ErrNotFound indicates the referenced node or edge does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate indicates a uniqueness constraint of the store was violated.
	ErrDuplicate = errors.New("duplicate record")

	// ErrScopeConflict indicates a node with the same external ID already exists in the scope.
	ErrScopeConflict = errors.New("already present in scope")
)

// NotFoundError names the missing node or edge.
type NotFoundError struct {
	Kind string // "node" or "edge"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Unwrap makes errors.Is(err, ErrNotFound) hold.
func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ScopeConflictError names the external ID that already exists.
type ScopeConflictError struct {
	ExternalID string
}

func (e *ScopeConflictError) Error() string {
	return fmt.Sprintf("node %q already present in scope", e.ExternalID)
}

// Unwrap makes errors.Is(err, ErrScopeConflict) hold.
func (e *ScopeConflictError) Unwrap() error {
	return ErrScopeConflict
}

// NodeNotFound returns a NotFoundError for a node ID.
func NodeNotFound(id string) error {
	return &NotFoundError{Kind: "node", ID: id}
}

// IsNotFound returns true if the error indicates a missing node or edge.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConflict returns true if the error indicates a uniqueness violation,
// either detected in memory or reported by the store.
func IsConflict(err error) bool {
	return errors.Is(err, ErrScopeConflict) || errors.Is(err, ErrDuplicate)
}
