package graph

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/matsen/citegraph/internal/paper"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errStoreDown = errors.New("store unavailable")

// memStore is an in-memory Store with failure injection.
type memStore struct {
	mu    sync.Mutex
	nodes map[string]paper.Node
	edges map[paper.EdgeKey]struct{}

	failInsertEdge bool
	failInsertNode bool
	failDelete     bool
	failUpdate     bool
	// insertEdgeBudget, when positive, fails InsertEdge after that many successes.
	insertEdgeBudget int
	insertEdgeCalls  int
}

func newMemStore() *memStore {
	return &memStore{
		nodes: make(map[string]paper.Node),
		edges: make(map[paper.EdgeKey]struct{}),
	}
}

func (s *memStore) Load(ctx context.Context) ([]paper.Node, []paper.Edge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var nodes []paper.Node
	for _, n := range s.nodes {
		nodes = append(nodes, n)
	}
	var edges []paper.Edge
	for k := range s.edges {
		edges = append(edges, k.Edge())
	}
	return nodes, edges, nil
}

func (s *memStore) InsertNode(ctx context.Context, n paper.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failInsertNode {
		return errStoreDown
	}
	if _, ok := s.nodes[n.ExternalID]; ok {
		return paper.ErrDuplicate
	}
	s.nodes[n.ExternalID] = n
	return nil
}

func (s *memStore) InsertEdge(ctx context.Context, e paper.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertEdgeCalls++
	if s.failInsertEdge || (s.insertEdgeBudget > 0 && s.insertEdgeCalls > s.insertEdgeBudget) {
		return errStoreDown
	}
	if _, ok := s.edges[e.Key()]; ok {
		return paper.ErrDuplicate
	}
	s.edges[e.Key()] = struct{}{}
	return nil
}

func (s *memStore) DeleteEdge(ctx context.Context, sourceID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return errStoreDown
	}
	delete(s.edges, paper.EdgeKey{SourceID: sourceID, TargetID: targetID})
	return nil
}

func (s *memStore) DeleteNodeCascade(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDelete {
		return 0, errStoreDown
	}
	removed := 0
	for k := range s.edges {
		if k.Edge().Touches(id) {
			delete(s.edges, k)
			removed++
		}
	}
	delete(s.nodes, id)
	return removed, nil
}

func (s *memStore) UpdateNode(ctx context.Context, id string, fields paper.NodeFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failUpdate {
		return errStoreDown
	}
	n, ok := s.nodes[id]
	if !ok {
		return paper.NodeNotFound(id)
	}
	fields.Apply(&n)
	s.nodes[id] = n
	return nil
}

func (s *memStore) edgeList() []paper.Edge {
	s.mu.Lock()
	defer s.mu.Unlock()
	edges := make([]paper.Edge, 0, len(s.edges))
	for k := range s.edges {
		edges = append(edges, k.Edge())
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].SourceID != edges[j].SourceID {
			return edges[i].SourceID < edges[j].SourceID
		}
		return edges[i].TargetID < edges[j].TargetID
	})
	return edges
}

// fakeRefs maps a citing ID to the IDs it references.
type fakeRefs struct {
	mu    sync.Mutex
	refs  map[string][]string
	fail  map[string]bool
	calls map[string]int
}

func newFakeRefs(refs map[string][]string) *fakeRefs {
	return &fakeRefs{refs: refs, fail: make(map[string]bool), calls: make(map[string]int)}
}

func (f *fakeRefs) GetReferences(ctx context.Context, id string) (map[string]struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[id]++
	if f.fail[id] {
		return nil, errors.New("upstream unavailable")
	}
	out := make(map[string]struct{})
	for _, r := range f.refs[id] {
		out[r] = struct{}{}
	}
	return out, nil
}

func node(id string) paper.Node {
	return paper.Node{ExternalID: id, Label: id + " (2020)"}
}

func openTestEngine(t *testing.T, store *memStore, refs ReferenceSource, ids ...string) *Engine {
	t.Helper()
	e, err := Open(context.Background(), store, refs, zerolog.Nop())
	require.NoError(t, err)
	for _, id := range ids {
		require.NoError(t, e.AddNode(context.Background(), node(id)))
	}
	return e
}

func TestOpen_LoadsStore(t *testing.T) {
	store := newMemStore()
	store.nodes["A"] = node("A")
	store.nodes["B"] = node("B")
	store.edges[paper.EdgeKey{SourceID: "A", TargetID: "B"}] = struct{}{}
	store.edges[paper.EdgeKey{SourceID: "A", TargetID: "GONE"}] = struct{}{}

	e, err := Open(context.Background(), store, newFakeRefs(nil), zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, Stats{Nodes: 2, Edges: 1}, e.Stats())
	assert.True(t, e.HasEdge("A", "B"))
	assert.False(t, e.HasEdge("A", "GONE"), "orphaned edges are not loaded")
}

func TestEngine_AddNode(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "W1")

	err := e.AddNode(ctx, node("W1"))
	var conflict *paper.ScopeConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "W1", conflict.ExternalID)
	assert.True(t, paper.IsConflict(err))

	assert.ErrorIs(t, e.AddNode(ctx, paper.Node{ExternalID: "W2"}), paper.ErrEmptyLabel)
	assert.False(t, e.HasNode("W2"))

	store.failInsertNode = true
	require.Error(t, e.AddNode(ctx, node("W3")))
	assert.False(t, e.HasNode("W3"), "memory changed after store failure")
}

func TestEngine_AddEdge(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "A", "B")

	added, err := e.AddEdge(ctx, "A", "B")
	require.NoError(t, err)
	assert.True(t, added)

	added, err = e.AddEdge(ctx, "A", "B")
	require.NoError(t, err)
	assert.False(t, added, "second AddEdge must be a no-op")
	assert.Len(t, store.edgeList(), 1)

	_, err = e.AddEdge(ctx, "A", "MISSING")
	var nf *paper.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "MISSING", nf.ID)

	_, err = e.AddEdge(ctx, "A", "A")
	assert.ErrorIs(t, err, paper.ErrSelfEdge)

	store.failInsertEdge = true
	_, err = e.AddEdge(ctx, "B", "A")
	require.ErrorIs(t, err, errStoreDown)
	assert.False(t, e.HasEdge("B", "A"), "memory changed after store failure")
}

func TestEngine_AddEdge_StoreAlreadyHasEdge(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "A", "B")
	store.edges[paper.EdgeKey{SourceID: "A", TargetID: "B"}] = struct{}{}

	added, err := e.AddEdge(ctx, "A", "B")
	require.NoError(t, err)
	assert.False(t, added)
	assert.True(t, e.HasEdge("A", "B"))
}

func TestEngine_RemoveNode_Cascade(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "P1", "P2", "P3")
	_, err := e.AddEdge(ctx, "P1", "P2")
	require.NoError(t, err)
	_, err = e.AddEdge(ctx, "P3", "P1")
	require.NoError(t, err)

	require.NoError(t, e.RemoveNode(ctx, "P1"))

	assert.False(t, e.HasNode("P1"))
	assert.Equal(t, []paper.Node{node("P2"), node("P3")}, e.Nodes())
	assert.Empty(t, e.Edges())
	assert.Empty(t, store.edgeList())
	assert.NotContains(t, store.nodes, "P1")

	assert.True(t, paper.IsNotFound(e.RemoveNode(ctx, "P1")))
}

func TestEngine_RemoveNode_StoreFailure(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "A", "B")
	_, err := e.AddEdge(ctx, "A", "B")
	require.NoError(t, err)

	store.failDelete = true
	require.ErrorIs(t, e.RemoveNode(ctx, "A"), errStoreDown)
	assert.True(t, e.HasNode("A"))
	assert.True(t, e.HasEdge("A", "B"))
}

func TestEngine_RemoveEdge(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "A", "B")
	_, err := e.AddEdge(ctx, "A", "B")
	require.NoError(t, err)

	require.NoError(t, e.RemoveEdge(ctx, "B", "A"), "absent edge is a no-op")
	assert.True(t, e.HasEdge("A", "B"))

	require.NoError(t, e.RemoveEdge(ctx, "A", "B"))
	assert.False(t, e.HasEdge("A", "B"))
	assert.Empty(t, store.edgeList())
}

func TestEngine_UpdateNode(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	e := openTestEngine(t, store, newFakeRefs(nil), "A")

	memo := "read this"
	n, err := e.UpdateNode(ctx, "A", paper.NodeFields{Memo: &memo})
	require.NoError(t, err)
	assert.Equal(t, memo, n.Memo)
	assert.Equal(t, memo, store.nodes["A"].Memo)

	blank := " "
	_, err = e.UpdateNode(ctx, "A", paper.NodeFields{Label: &blank})
	assert.ErrorIs(t, err, paper.ErrEmptyLabel)

	_, err = e.UpdateNode(ctx, "Z", paper.NodeFields{Memo: &memo})
	assert.True(t, paper.IsNotFound(err))

	store.failUpdate = true
	other := "other"
	_, err = e.UpdateNode(ctx, "A", paper.NodeFields{Memo: &other})
	require.Error(t, err)
	got, _ := e.Node("A")
	assert.Equal(t, memo, got.Memo, "memory changed after store failure")
}

func TestEngine_Snapshot(t *testing.T) {
	ctx := context.Background()
	e := openTestEngine(t, newMemStore(), newFakeRefs(nil), "C", "A", "B")
	_, err := e.AddEdge(ctx, "B", "C")
	require.NoError(t, err)
	_, err = e.AddEdge(ctx, "A", "C")
	require.NoError(t, err)

	g := e.Snapshot()
	assert.Equal(t, []paper.Node{node("A"), node("B"), node("C")}, g.Nodes)
	assert.Equal(t, []paper.Edge{{SourceID: "A", TargetID: "C"}, {SourceID: "B", TargetID: "C"}}, g.Edges)
}
