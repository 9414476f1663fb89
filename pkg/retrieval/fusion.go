package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// DefaultRRFConstant is the standard smoothing constant of reciprocal rank
// fusion.
const DefaultRRFConstant = 60

// Merge fuses agent hit lists with reciprocal rank fusion: each appearance
// of an entity at 1-based rank r contributes 1/(k+r) to its fused score.
// The output order is fully deterministic: fused score descending, then
// number of contributing agents descending, then entity id ascending. The
// same inputs always produce the same output, regardless of list order.
func Merge(lists [][]types.RetrievalHit, k int, limit int) []types.FusedResult {
	if k <= 0 {
		k = DefaultRRFConstant
	}

	type fused struct {
		score   float64
		agents  []types.AgentRank
		snippet string
	}
	byID := make(map[string]*fused)

	for _, hits := range lists {
		for _, h := range hits {
			f, ok := byID[h.EntityID]
			if !ok {
				f = &fused{snippet: h.Snippet}
				byID[h.EntityID] = f
			}
			f.score += 1.0 / float64(k+h.Rank)
			f.agents = append(f.agents, types.AgentRank{Agent: h.Agent, Rank: h.Rank})
		}
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		// Provenance order is normalized so fused output does not
		// depend on agent completion order.
		sort.Slice(byID[id].agents, func(i, j int) bool {
			return byID[id].agents[i].Agent < byID[id].agents[j].Agent
		})
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		fi, fj := byID[ids[i]], byID[ids[j]]
		if fi.score != fj.score {
			return fi.score > fj.score
		}
		if len(fi.agents) != len(fj.agents) {
			return len(fi.agents) > len(fj.agents)
		}
		return ids[i] < ids[j]
	})

	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	results := make([]types.FusedResult, 0, len(ids))
	for _, id := range ids {
		f := byID[id]
		results = append(results, types.FusedResult{
			EntityID: id,
			Score:    f.score,
			Agents:   f.agents,
			Citation: types.Citation{EntityID: id, Snippet: f.snippet},
		})
	}
	return results
}

// AttachCitations fills in citation provenance from the store. Results whose
// entity no longer resolves keep their snippet-only citation.
func AttachCitations(ctx context.Context, store graph.Store, results []types.FusedResult) error {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.EntityID
	}
	entities, err := store.GetEntities(ctx, ids)
	if err != nil {
		return fmt.Errorf("resolve citations: %w", err)
	}
	byID := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
	}
	for i := range results {
		e, ok := byID[results[i].EntityID]
		if !ok {
			continue
		}
		results[i].Citation.Kind = e.Kind
		results[i].Citation.Title = e.Title
		results[i].Citation.Number = e.Number
		if results[i].Citation.Snippet == "" {
			results[i].Citation.Snippet = e.DisplayText()
		}
	}
	return nil
}
