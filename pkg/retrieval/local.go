package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// LocalAgent answers entity-centric questions: vector search finds the
// provisions and judgments nearest the query, then a one-hop expansion pulls
// in their direct graph neighborhood at a damped score. Final scores are
// weighted by degree centrality.
type LocalAgent struct {
	store  graph.Store
	embed  embedder.Client
	cfg    config.RetrievalConfig
	logger *slog.Logger
}

// NewLocalAgent creates the local retrieval agent.
func NewLocalAgent(store graph.Store, embed embedder.Client, cfg config.RetrievalConfig, logger *slog.Logger) *LocalAgent {
	return &LocalAgent{store: store, embed: embed, cfg: cfg, logger: logger}
}

// Name implements Agent.
func (a *LocalAgent) Name() string { return AgentLocal }

// Retrieve implements Agent.
func (a *LocalAgent) Retrieve(ctx context.Context, query string, asOf *time.Time, maxResults int) ([]types.RetrievalHit, error) {
	vec, err := a.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// Over-fetch so the similarity floor and dedup still leave enough
	// candidates.
	candidates, err := a.store.VectorSearch(ctx, vec, maxResults*2)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	scores := make(map[string]float64)
	var seeds []graph.ScoredEntity
	for _, c := range candidates {
		if c.Similarity < a.cfg.MinSimilarity {
			continue
		}
		scores[c.EntityID] = c.Similarity
		seeds = append(seeds, c)
	}

	for _, seed := range seeds {
		visits, err := a.store.Traverse(ctx, seed.EntityID, relationEdges, 1, asOf)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", seed.EntityID, err)
		}
		for _, v := range visits {
			damped := seed.Similarity * hopDamping
			if damped > scores[v.EntityID] {
				scores[v.EntityID] = damped
			}
		}
	}

	boost := func(e *types.Entity) float64 { return 1 + centralityBoost*e.Centrality }
	hits, err := materializeHits(ctx, a.store, AgentLocal, scores, maxResults, boost)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("local retrieval done", "candidates", len(candidates), "seeds", len(seeds), "hits", len(hits))
	return hits, nil
}

// materializeHits turns a score map into a ranked, snippet-bearing hit list.
// A non-nil boost rescales each resolved entity's score before ranking.
// Ordering is deterministic: score descending, entity id ascending on ties.
// Community entities never surface as evidence.
func materializeHits(ctx context.Context, store graph.Store, agent string, scores map[string]float64, maxResults int, boost func(*types.Entity) float64) ([]types.RetrievalHit, error) {
	ids := make([]string, 0, len(scores))
	for id := range scores {
		ids = append(ids, id)
	}
	entities, err := store.GetEntities(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve hits: %w", err)
	}
	byID := make(map[string]*types.Entity, len(entities))
	for _, e := range entities {
		byID[e.ID] = e
		if boost != nil {
			scores[e.ID] *= boost(e)
		}
	}

	sort.Slice(ids, func(i, j int) bool {
		if scores[ids[i]] != scores[ids[j]] {
			return scores[ids[i]] > scores[ids[j]]
		}
		return ids[i] < ids[j]
	})

	hits := make([]types.RetrievalHit, 0, maxResults)
	for _, id := range ids {
		e, ok := byID[id]
		if !ok || e.Kind == types.CommunityKind {
			continue
		}
		hits = append(hits, types.RetrievalHit{
			EntityID:    id,
			Snippet:     e.DisplayText(),
			Score:       scores[id],
			Agent:       agent,
			Rank:        len(hits) + 1,
			CommunityID: e.CommunityID,
		})
		if len(hits) == maxResults {
			break
		}
	}
	return hits, nil
}

var _ Agent = (*LocalAgent)(nil)
