package viz

import "github.com/matsen/citegraph/internal/paper"

// FromGraph converts a graph snapshot to visualization data.
// Edges with an endpoint outside the snapshot are dropped.
func FromGraph(g paper.Graph) *GraphData {
	nodeIDs := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		nodeIDs[n.ExternalID] = true
	}

	_, valid := paper.DetectOrphanedEdges(g.Edges, nodeIDs)

	citedBy := make(map[string]int)
	cites := make(map[string]int)
	edges := make([]Edge, 0, len(valid))
	for _, e := range valid {
		// The target cites the source.
		citedBy[e.SourceID]++
		cites[e.TargetID]++
		edges = append(edges, Edge{Source: e.SourceID, Target: e.TargetID})
	}

	nodes := make([]Node, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, newPaperNode(n, citedBy[n.ExternalID], cites[n.ExternalID]))
	}

	return &GraphData{Nodes: nodes, Edges: edges}
}

// newPaperNode creates a visualization node from a graph node.
func newPaperNode(n paper.Node, citedBy, cites int) Node {
	label := n.Label
	if label == "" {
		label = n.ExternalID
	}
	return Node{
		ID:      n.ExternalID,
		Label:   label,
		Title:   n.Title,
		Authors: n.Authors,
		Memo:    n.Memo,
		Link:    n.Link,
		CitedBy: citedBy,
		Cites:   cites,
	}
}
