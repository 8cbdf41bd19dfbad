package paper

// Graph is an immutable snapshot of one scope's nodes and edges,
// handed to renderers and API responses.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// IsEmpty returns true if the graph has no nodes.
func (g Graph) IsEmpty() bool {
	return len(g.Nodes) == 0
}

// NodeByID returns the node with the given external ID.
func (g Graph) NodeByID(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ExternalID == id {
			return n, true
		}
	}
	return Node{}, false
}
