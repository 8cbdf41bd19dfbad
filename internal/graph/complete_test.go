package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/matsen/citegraph/internal/openalex"
	"github.com/matsen/citegraph/internal/paper"
	"github.com/matsen/citegraph/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAutoComplete_Direction(t *testing.T) {
	// P1 cites P2, so the edge runs P2 -> P1.
	refs := newFakeRefs(map[string][]string{
		"P1": {"P2", "X9"},
		"P2": {"X8"},
	})
	store := newMemStore()
	e := openTestEngine(t, store, refs, "P1", "P2")

	added, err := e.AutoComplete(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, added)
	assert.Equal(t, []paper.Edge{{SourceID: "P2", TargetID: "P1"}}, e.Edges())
	assert.Equal(t, e.Edges(), store.edgeList())
	assert.Equal(t, 2, e.Stats().Nodes, "completion never adds nodes")
}

func TestAutoComplete_Idempotent(t *testing.T) {
	refs := newFakeRefs(map[string][]string{
		"A": {"B", "C"},
		"B": {"C"},
		"C": {},
	})
	e := openTestEngine(t, newMemStore(), refs, "A", "B", "C")
	ctx := context.Background()

	first, err := e.AutoComplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, first)

	second, err := e.AutoComplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, second)
	assert.Len(t, e.Edges(), 3)
}

func TestAutoComplete_KeepsExistingEdges(t *testing.T) {
	refs := newFakeRefs(map[string][]string{"A": {"B"}})
	e := openTestEngine(t, newMemStore(), refs, "A", "B")
	ctx := context.Background()

	_, err := e.AddEdge(ctx, "B", "A")
	require.NoError(t, err)
	// A manual edge with no citation behind it survives completion.
	_, err = e.AddEdge(ctx, "A", "B")
	require.NoError(t, err)

	added, err := e.AutoComplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Len(t, e.Edges(), 2)
}

func TestAutoComplete_SkipsSelfAndFailedFetches(t *testing.T) {
	refs := newFakeRefs(map[string][]string{
		"A": {"A", "B"},
		"B": {"A"},
	})
	refs.fail["B"] = true
	e := openTestEngine(t, newMemStore(), refs, "A", "B")

	added, err := e.AutoComplete(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Equal(t, []paper.Edge{{SourceID: "B", TargetID: "A"}}, e.Edges())
	assert.Equal(t, 1, refs.calls["B"])
}

func TestAutoComplete_StoreFailureStops(t *testing.T) {
	refs := newFakeRefs(map[string][]string{
		"A": {"B", "C"},
		"B": {"C"},
	})
	store := newMemStore()
	e := openTestEngine(t, store, refs, "A", "B", "C")
	store.insertEdgeBudget = 1

	added, err := e.AutoComplete(context.Background())
	require.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, 1, added)
	// Memory and store agree on what was added before the failure.
	assert.Equal(t, store.edgeList(), e.Edges())
}

func TestAutoComplete_Cancelled(t *testing.T) {
	refs := newFakeRefs(map[string][]string{"A": {"B"}})
	e := openTestEngine(t, newMemStore(), refs, "A", "B")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	added, err := e.AutoComplete(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, added)
}

// TestAutoComplete_EndToEnd runs completion against SQLite and a fake
// OpenAlex server through the real client and cache.
func TestAutoComplete_EndToEnd(t *testing.T) {
	references := map[string][]string{
		"W1": {"W2", "W3"},
		"W2": {"W3"},
		"W3": {},
	}
	var requests atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		id := strings.TrimPrefix(r.URL.Path, "/works/")
		refs, ok := references[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		quoted := make([]string, len(refs))
		for i, ref := range refs {
			quoted[i] = fmt.Sprintf("%q", "https://openalex.org/"+ref)
		}
		fmt.Fprintf(w, `{"id":"https://openalex.org/%s","display_name":"Paper %s","publication_year":2020,"referenced_works":[%s]}`,
			id, id, strings.Join(quoted, ","))
	}))
	defer srv.Close()

	client := openalex.NewClient(
		openalex.WithBaseURL(srv.URL),
		openalex.WithRetry(2, time.Millisecond),
		openalex.WithRateLimit(0),
	)
	cache := openalex.NewCache(client)

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "graph.db"))
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	user, err := db.CreateUser(ctx, "admin", "hash", true)
	require.NoError(t, err)
	topic, err := db.CreateTopic(ctx, user.ID, storage.DefaultTopic)
	require.NoError(t, err)

	e, err := Open(ctx, db.Graph(topic.Scope()), cache, zerolog.Nop())
	require.NoError(t, err)
	for _, id := range []string{"W1", "W2", "W3"} {
		require.NoError(t, e.AddNode(ctx, node(id)))
	}

	added, err := e.AutoComplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, added)

	want := []paper.Edge{
		{SourceID: "W2", TargetID: "W1"},
		{SourceID: "W3", TargetID: "W1"},
		{SourceID: "W3", TargetID: "W2"},
	}
	assert.Equal(t, want, e.Edges())

	// A fresh engine over the same store sees the persisted edges.
	reopened, err := Open(ctx, db.Graph(topic.Scope()), cache, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, want, reopened.Edges())

	// The second run is served entirely from the cache.
	before := requests.Load()
	added, err = reopened.AutoComplete(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, added)
	assert.Equal(t, before, requests.Load())
}
