package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// driftDecay scales a visited node's score per hop away from its seed.
const driftDecay = 0.6

// DriftAgent bridges thematic and entity-level evidence: it anchors on the
// communities nearest the query, takes each anchor's most central members as
// seeds, and walks a bounded number of hops outward. Evidence found this way
// can sit outside the anchor communities entirely, which is the point.
type DriftAgent struct {
	store     graph.Store
	embed     embedder.Client
	centroids *Centroids
	cfg       config.RetrievalConfig
	logger    *slog.Logger
}

// NewDriftAgent creates the drift retrieval agent.
func NewDriftAgent(store graph.Store, embed embedder.Client, centroids *Centroids, cfg config.RetrievalConfig, logger *slog.Logger) *DriftAgent {
	return &DriftAgent{store: store, embed: embed, centroids: centroids, cfg: cfg, logger: logger}
}

// Name implements Agent.
func (a *DriftAgent) Name() string { return AgentDrift }

// Retrieve implements Agent.
func (a *DriftAgent) Retrieve(ctx context.Context, query string, asOf *time.Time, maxResults int) ([]types.RetrievalHit, error) {
	vec, err := a.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	anchors, err := selectAnchors(ctx, a.store, a.centroids, vec, a.cfg.CommunityThreshold, a.cfg.MaxCommunities)
	if errors.Is(err, types.ErrNoCommunities) {
		// No community layer means no anchors to walk from. Valid empty
		// outcome, not a failure.
		return []types.RetrievalHit{}, nil
	}
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for _, anc := range anchors {
		members, err := a.store.CommunityMembers(ctx, anc.community.ID)
		if err != nil {
			return nil, fmt.Errorf("members of %s: %w", anc.community.ID, err)
		}
		if len(members) > a.cfg.SeedsPerCommunity {
			members = members[:a.cfg.SeedsPerCommunity]
		}
		seeds, err := a.store.GetEntities(ctx, members)
		if err != nil {
			return nil, fmt.Errorf("resolve seeds of %s: %w", anc.community.ID, err)
		}

		for _, seed := range seeds {
			base := anc.relevance * seed.Centrality
			if base > scores[seed.ID] {
				scores[seed.ID] = base
			}

			visits, err := a.store.Traverse(ctx, seed.ID, relationEdges, a.cfg.HopLimit, asOf)
			if err != nil {
				return nil, fmt.Errorf("traverse from %s: %w", seed.ID, err)
			}
			for _, v := range visits {
				score := base * math.Pow(driftDecay, float64(v.Depth))
				if score > scores[v.EntityID] {
					scores[v.EntityID] = score
				}
			}
		}
	}

	hits, err := materializeHits(ctx, a.store, AgentDrift, scores, maxResults, nil)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("drift retrieval done", "anchors", len(anchors), "hits", len(hits))
	return hits, nil
}

var _ Agent = (*DriftAgent)(nil)
