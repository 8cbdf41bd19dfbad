// Package viz renders citation graphs as self-contained Cytoscape.js pages.
package viz

// GraphData contains all data needed to render the visualization.
type GraphData struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node represents a paper in the graph.
type Node struct {
	ID string `json:"id"`

	// Display
	Label string `json:"label"`

	// Tooltip fields
	Title   string `json:"title,omitempty"`
	Authors string `json:"authors,omitempty"`
	Memo    string `json:"memo,omitempty"`

	// Opened in a new tab when the node is clicked
	Link string `json:"link,omitempty"`

	// Citation counts within the graph; CitedBy drives node size.
	CitedBy int `json:"citedBy"`
	Cites   int `json:"cites"`
}

// Edge is a directed citation: Source is cited by Target.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// IsEmpty returns true if the graph has no nodes.
func (g *GraphData) IsEmpty() bool {
	return len(g.Nodes) == 0
}
