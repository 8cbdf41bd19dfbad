// Package paper defines the core domain types for citation graphs.
package paper

import "errors"

// Edge represents a directed citation between two papers in one scope.
// SourceID is the cited (earlier) work and TargetID the citing (later) work.
type Edge struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
}

// Validation errors.
var (
	ErrEmptySourceID = errors.New("source_id is required")
	ErrEmptyTargetID = errors.New("target_id is required")
	ErrSelfEdge      = errors.New("source_id and target_id cannot be the same")
)

// Validate checks the edge for creation.
func (e Edge) Validate() error {
	if e.SourceID == "" {
		return ErrEmptySourceID
	}
	if e.TargetID == "" {
		return ErrEmptyTargetID
	}
	if e.SourceID == e.TargetID {
		return ErrSelfEdge
	}
	return nil
}

// Key returns the unique identity of this edge within its scope.
func (e Edge) Key() EdgeKey {
	return EdgeKey{SourceID: e.SourceID, TargetID: e.TargetID}
}

// Touches reports whether id is either endpoint of the edge.
func (e Edge) Touches(id string) bool {
	return e.SourceID == id || e.TargetID == id
}

// EdgeKey is the ordered (source, target) pair identifying an edge.
type EdgeKey struct {
	SourceID string
	TargetID string
}

// Edge converts the key back to an Edge.
func (k EdgeKey) Edge() Edge {
	return Edge{SourceID: k.SourceID, TargetID: k.TargetID}
}

// OrphanedEdgeInfo contains information about an edge with missing endpoints.
type OrphanedEdgeInfo struct {
	SourceID string `json:"source_id"`
	TargetID string `json:"target_id"`
	Reason   string `json:"reason"` // "missing_source", "missing_target", or "missing_both"
}

// DetectOrphanedEdges finds edges that reference nodes not in the valid ID set.
// Returns orphaned edges with their reasons and the list of valid edges.
func DetectOrphanedEdges(edges []Edge, validIDs map[string]bool) (orphaned []OrphanedEdgeInfo, valid []Edge) {
	for _, e := range edges {
		sourceOK := validIDs[e.SourceID]
		targetOK := validIDs[e.TargetID]

		if sourceOK && targetOK {
			valid = append(valid, e)
			continue
		}

		info := OrphanedEdgeInfo{SourceID: e.SourceID, TargetID: e.TargetID}
		switch {
		case !sourceOK && !targetOK:
			info.Reason = "missing_both"
		case !sourceOK:
			info.Reason = "missing_source"
		default:
			info.Reason = "missing_target"
		}
		orphaned = append(orphaned, info)
	}
	return orphaned, valid
}
