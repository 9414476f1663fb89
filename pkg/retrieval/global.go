package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// GlobalAgent answers thematic questions from the community layer: it picks
// the communities whose centroid is nearest the query and surfaces their
// most central members, weighted by how relevant the community itself is.
type GlobalAgent struct {
	store     graph.Store
	embed     embedder.Client
	centroids *Centroids
	cfg       config.RetrievalConfig
	logger    *slog.Logger
}

// NewGlobalAgent creates the global retrieval agent.
func NewGlobalAgent(store graph.Store, embed embedder.Client, centroids *Centroids, cfg config.RetrievalConfig, logger *slog.Logger) *GlobalAgent {
	return &GlobalAgent{store: store, embed: embed, centroids: centroids, cfg: cfg, logger: logger}
}

// Name implements Agent.
func (a *GlobalAgent) Name() string { return AgentGlobal }

// Retrieve implements Agent. asOf does not apply: the community layer is a
// snapshot of the latest clustering, not a bi-temporal record.
func (a *GlobalAgent) Retrieve(ctx context.Context, query string, asOf *time.Time, maxResults int) ([]types.RetrievalHit, error) {
	vec, err := a.embed.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	anchors, err := selectAnchors(ctx, a.store, a.centroids, vec, a.cfg.CommunityThreshold, a.cfg.MaxCommunities)
	if errors.Is(err, types.ErrNoCommunities) {
		// An unbuilt community layer yields no thematic evidence, which
		// is a valid empty outcome, not a failure.
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
		entities, err := a.store.GetEntities(ctx, members)
		if err != nil {
			return nil, fmt.Errorf("resolve members of %s: %w", anc.community.ID, err)
		}
		for _, e := range entities {
			score := anc.relevance * e.Centrality
			if score > scores[e.ID] {
				scores[e.ID] = score
			}
		}
	}

	hits, err := materializeHits(ctx, a.store, AgentGlobal, scores, maxResults, nil)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("global retrieval done", "anchors", len(anchors), "hits", len(hits))
	return hits, nil
}

var _ Agent = (*GlobalAgent)(nil)
