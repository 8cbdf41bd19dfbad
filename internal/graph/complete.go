package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/matsen/citegraph/internal/paper"
)

// AutoComplete adds every missing citation edge between papers already in
// the graph and returns how many edges it added.
//
// The set of citing papers is fixed when the call starts. For each of them,
// every referenced work that is in the graph gets an edge cited -> citing.
// Papers whose references cannot be fetched are skipped. A store failure
// stops completion and is returned with the count added so far.
func (e *Engine) AutoComplete(ctx context.Context) (int, error) {
	e.mu.Lock()
	citing := e.sortedIDs()
	e.mu.Unlock()

	added := 0
	defer func() {
		e.metrics.ObserveEdgesCompleted(added)
	}()

	for _, id := range citing {
		if err := ctx.Err(); err != nil {
			return added, err
		}

		refs, err := e.refs.GetReferences(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return added, ctx.Err()
			}
			e.logger.Warn().Err(err).Str("id", id).Msg("skipping paper: references unavailable")
			continue
		}

		n, err := e.completeFrom(ctx, id, refs)
		added += n
		if err != nil {
			return added, err
		}
	}

	e.logger.Info().Int("papers", len(citing)).Int("added", added).Msg("auto-completion finished")
	return added, nil
}

// completeFrom adds the missing edges cited -> citing for one citing paper.
func (e *Engine) completeFrom(ctx context.Context, citing string, refs map[string]struct{}) (int, error) {
	cited := make([]string, 0, len(refs))
	for id := range refs {
		cited = append(cited, id)
	}
	sort.Strings(cited)

	e.mu.Lock()
	defer e.mu.Unlock()

	// The paper may have been removed while its references were fetched.
	if _, ok := e.nodes[citing]; !ok {
		return 0, nil
	}

	added := 0
	for _, src := range cited {
		if src == citing {
			continue
		}
		if _, ok := e.nodes[src]; !ok {
			continue
		}
		ok, err := e.addEdgeLocked(ctx, paper.Edge{SourceID: src, TargetID: citing})
		if err != nil {
			return added, fmt.Errorf("auto-completing %s: %w", citing, err)
		}
		if ok {
			added++
			e.logger.Debug().Str("source", src).Str("target", citing).Msg("edge added")
		}
	}
	return added, nil
}
