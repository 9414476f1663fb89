package retrieval

import (
	"context"
	"fmt"
	"sort"

	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// anchor is a community selected as relevant to the query.
type anchor struct {
	community *types.Entity
	relevance float64
}

// selectAnchors ranks every community by cosine similarity between the query
// embedding and the community centroid, keeping at most maxCommunities above
// threshold. When no community clears the threshold the single best one is
// kept anyway, so thematic questions on a sparse graph still return
// something instead of silently going empty.
func selectAnchors(ctx context.Context, store graph.Store, centroids *Centroids, queryVec []float32, threshold float64, maxCommunities int) ([]anchor, error) {
	communities, err := store.Communities(ctx)
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	if len(communities) == 0 {
		return nil, types.ErrNoCommunities
	}

	scored := make([]anchor, 0, len(communities))
	for _, comm := range communities {
		centroid, err := centroids.For(ctx, comm.ID)
		if err != nil {
			return nil, fmt.Errorf("centroid of %s: %w", comm.ID, err)
		}
		scored = append(scored, anchor{community: comm, relevance: graph.Cosine(queryVec, centroid)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].relevance != scored[j].relevance {
			return scored[i].relevance > scored[j].relevance
		}
		return scored[i].community.ID < scored[j].community.ID
	})

	var selected []anchor
	for _, a := range scored {
		if a.relevance < threshold {
			break
		}
		selected = append(selected, a)
		if len(selected) == maxCommunities {
			break
		}
	}
	if len(selected) == 0 {
		selected = scored[:1]
	}
	return selected, nil
}
