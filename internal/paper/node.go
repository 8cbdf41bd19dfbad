package paper

import (
	"errors"
	"strings"
)

// Node is one paper in one scope's citation graph.
type Node struct {
	ExternalID string `json:"external_id"`
	Label      string `json:"label"`
	Title      string `json:"title"`
	Authors    string `json:"authors,omitempty"`
	Link       string `json:"link,omitempty"`
	Memo       string `json:"memo,omitempty"`
}

// Validation errors for nodes.
var (
	ErrEmptyExternalID = errors.New("external_id is required")
	ErrEmptyLabel      = errors.New("label is required")
)

// Validate checks the node for creation.
func (n Node) Validate() error {
	if strings.TrimSpace(n.ExternalID) == "" {
		return ErrEmptyExternalID
	}
	if strings.TrimSpace(n.Label) == "" {
		return ErrEmptyLabel
	}
	return nil
}

// NodeFields is a partial update of a node's mutable fields.
// A nil field is left unchanged.
type NodeFields struct {
	Label   *string `json:"label,omitempty"`
	Title   *string `json:"title,omitempty"`
	Authors *string `json:"authors,omitempty"`
	Link    *string `json:"link,omitempty"`
	Memo    *string `json:"memo,omitempty"`
}

// IsEmpty returns true if no field is set.
func (f NodeFields) IsEmpty() bool {
	return f.Label == nil && f.Title == nil && f.Authors == nil && f.Link == nil && f.Memo == nil
}

// Validate rejects updates that would blank the label.
func (f NodeFields) Validate() error {
	if f.Label != nil && strings.TrimSpace(*f.Label) == "" {
		return ErrEmptyLabel
	}
	return nil
}

// Apply merges the set fields into n.
func (f NodeFields) Apply(n *Node) {
	if f.Label != nil {
		n.Label = *f.Label
	}
	if f.Title != nil {
		n.Title = *f.Title
	}
	if f.Authors != nil {
		n.Authors = *f.Authors
	}
	if f.Link != nil {
		n.Link = *f.Link
	}
	if f.Memo != nil {
		n.Memo = *f.Memo
	}
}

// Scope identifies one independent graph: an owner and one of their topics.
type Scope struct {
	OwnerID int64 `json:"owner_id"`
	TopicID int64 `json:"topic_id"`
}
