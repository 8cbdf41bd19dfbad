// Package graph holds the in-memory citation graph of one scope and keeps
// it in step with its persistent store.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/matsen/citegraph/internal/metrics"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/rs/zerolog"
)

// Store persists the nodes and edges of one scope.
// *storage.GraphStore satisfies it.
type Store interface {
	Load(ctx context.Context) ([]paper.Node, []paper.Edge, error)
	InsertNode(ctx context.Context, n paper.Node) error
	InsertEdge(ctx context.Context, e paper.Edge) error
	DeleteEdge(ctx context.Context, sourceID, targetID string) error
	DeleteNodeCascade(ctx context.Context, id string) (int, error)
	UpdateNode(ctx context.Context, id string, fields paper.NodeFields) error
}

// ReferenceSource returns the set of works cited by a work.
// *openalex.Cache satisfies it.
type ReferenceSource interface {
	GetReferences(ctx context.Context, id string) (map[string]struct{}, error)
}

// Engine is the citation graph of one scope. Every mutation is applied to
// the store first and to memory only once the store has accepted it.
// Methods are safe for concurrent use and are serialized.
type Engine struct {
	store   Store
	refs    ReferenceSource
	logger  zerolog.Logger
	metrics *metrics.Collector

	mu    sync.Mutex
	nodes map[string]paper.Node
	edges map[paper.EdgeKey]struct{}
}

// Option configures an Engine.
type Option func(*Engine)

// WithMetrics reports completed edges to a collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

// Stats summarizes the size of a graph.
type Stats struct {
	Nodes int `json:"nodes"`
	Edges int `json:"edges"`
}

// Open loads the scope's graph from store.
func Open(ctx context.Context, store Store, refs ReferenceSource, logger zerolog.Logger, opts ...Option) (*Engine, error) {
	nodes, edges, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("opening graph: %w", err)
	}

	e := &Engine{
		store:  store,
		refs:   refs,
		logger: logger,
		nodes:  make(map[string]paper.Node, len(nodes)),
		edges:  make(map[paper.EdgeKey]struct{}, len(edges)),
	}
	for _, opt := range opts {
		opt(e)
	}

	for _, n := range nodes {
		e.nodes[n.ExternalID] = n
	}
	orphans, valid := paper.DetectOrphanedEdges(edges, e.nodeIDs())
	if len(orphans) > 0 {
		e.logger.Warn().Int("count", len(orphans)).Msg("ignoring stored edges that reference missing nodes")
	}
	for _, edge := range valid {
		e.edges[edge.Key()] = struct{}{}
	}

	e.logger.Debug().Int("nodes", len(e.nodes)).Int("edges", len(e.edges)).Msg("graph loaded")
	return e, nil
}

// AddNode adds a paper to the graph.
func (e *Engine) AddNode(ctx context.Context, n paper.Node) error {
	if err := n.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.nodes[n.ExternalID]; ok {
		return &paper.ScopeConflictError{ExternalID: n.ExternalID}
	}

	if err := e.store.InsertNode(ctx, n); err != nil {
		if errors.Is(err, paper.ErrDuplicate) {
			return fmt.Errorf("%w: %w", &paper.ScopeConflictError{ExternalID: n.ExternalID}, err)
		}
		return fmt.Errorf("adding node %s: %w", n.ExternalID, err)
	}

	e.nodes[n.ExternalID] = n
	e.logger.Info().Str("id", n.ExternalID).Msg("node added")
	return nil
}

// RemoveNode removes a paper and every edge touching it.
func (e *Engine) RemoveNode(ctx context.Context, id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.nodes[id]; !ok {
		return paper.NodeNotFound(id)
	}

	removed, err := e.store.DeleteNodeCascade(ctx, id)
	if err != nil {
		return fmt.Errorf("removing node %s: %w", id, err)
	}

	delete(e.nodes, id)
	for key := range e.edges {
		if key.Edge().Touches(id) {
			delete(e.edges, key)
		}
	}

	e.logger.Info().Str("id", id).Int("edges_removed", removed).Msg("node removed")
	return nil
}

// UpdateNode applies a partial update to a paper and returns the result.
func (e *Engine) UpdateNode(ctx context.Context, id string, fields paper.NodeFields) (paper.Node, error) {
	if err := fields.Validate(); err != nil {
		return paper.Node{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	n, ok := e.nodes[id]
	if !ok {
		return paper.Node{}, paper.NodeNotFound(id)
	}
	if fields.IsEmpty() {
		return n, nil
	}

	if err := e.store.UpdateNode(ctx, id, fields); err != nil {
		return paper.Node{}, fmt.Errorf("updating node %s: %w", id, err)
	}

	fields.Apply(&n)
	e.nodes[id] = n
	return n, nil
}

// AddEdge adds the citation edge sourceID -> targetID (sourceID is cited by
// targetID). It reports false without error if the edge already exists.
func (e *Engine) AddEdge(ctx context.Context, sourceID, targetID string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.addEdgeLocked(ctx, paper.Edge{SourceID: sourceID, TargetID: targetID})
}

func (e *Engine) addEdgeLocked(ctx context.Context, edge paper.Edge) (bool, error) {
	if err := edge.Validate(); err != nil {
		return false, err
	}
	if _, ok := e.nodes[edge.SourceID]; !ok {
		return false, paper.NodeNotFound(edge.SourceID)
	}
	if _, ok := e.nodes[edge.TargetID]; !ok {
		return false, paper.NodeNotFound(edge.TargetID)
	}

	key := edge.Key()
	if _, ok := e.edges[key]; ok {
		return false, nil
	}

	if err := e.store.InsertEdge(ctx, edge); err != nil {
		if errors.Is(err, paper.ErrDuplicate) {
			// Store already had it; bring memory back in line.
			e.edges[key] = struct{}{}
			return false, nil
		}
		return false, fmt.Errorf("adding edge %s -> %s: %w", edge.SourceID, edge.TargetID, err)
	}

	e.edges[key] = struct{}{}
	return true, nil
}

// RemoveEdge removes the edge sourceID -> targetID. Removing an absent edge is a no-op.
func (e *Engine) RemoveEdge(ctx context.Context, sourceID, targetID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	key := paper.EdgeKey{SourceID: sourceID, TargetID: targetID}
	if _, ok := e.edges[key]; !ok {
		return nil
	}

	if err := e.store.DeleteEdge(ctx, sourceID, targetID); err != nil {
		return fmt.Errorf("removing edge %s -> %s: %w", sourceID, targetID, err)
	}

	delete(e.edges, key)
	return nil
}

// Node returns the paper with the given ID.
func (e *Engine) Node(id string) (paper.Node, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	n, ok := e.nodes[id]
	return n, ok
}

// HasNode reports whether id is in the graph.
func (e *Engine) HasNode(id string) bool {
	_, ok := e.Node(id)
	return ok
}

// HasEdge reports whether the edge sourceID -> targetID is in the graph.
func (e *Engine) HasEdge(sourceID, targetID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.edges[paper.EdgeKey{SourceID: sourceID, TargetID: targetID}]
	return ok
}

// Nodes returns the papers ordered by ID.
func (e *Engine) Nodes() []paper.Node {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedNodes()
}

// Edges returns the edges ordered by source then target.
func (e *Engine) Edges() []paper.Edge {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sortedEdges()
}

// Snapshot returns a consistent copy of the whole graph.
func (e *Engine) Snapshot() paper.Graph {
	e.mu.Lock()
	defer e.mu.Unlock()
	return paper.Graph{Nodes: e.sortedNodes(), Edges: e.sortedEdges()}
}

// Stats returns the node and edge counts.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Stats{Nodes: len(e.nodes), Edges: len(e.edges)}
}

func (e *Engine) sortedNodes() []paper.Node {
	nodes := make([]paper.Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		nodes = append(nodes, n)
	}
	sort.Slice(nodes, func(i, j int) bool {
		return nodes[i].ExternalID < nodes[j].ExternalID
	})
	return nodes
}

func (e *Engine) sortedEdges() []paper.Edge {
	edges := make([]paper.Edge, 0, len(e.edges))
	for key := range e.edges {
		edges = append(edges, key.Edge())
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})
	return edges
}

func (e *Engine) sortedIDs() []string {
	ids := make([]string, 0, len(e.nodes))
	for id := range e.nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (e *Engine) nodeIDs() map[string]bool {
	ids := make(map[string]bool, len(e.nodes))
	for id := range e.nodes {
		ids[id] = true
	}
	return ids
}
