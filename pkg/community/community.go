// Package community builds the derived topic layer of the legal graph:
// label-propagation clustering over the citation projection, hierarchical
// summarization of each cluster, and degree centrality for its members. The
// layer is rebuilt out of band and swapped atomically; request-path code
// only ever reads it.
package community

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jurisgraph/jurisgraph/pkg/compose"
	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// MaxBuildConcurrency limits concurrent cluster summarization.
const MaxBuildConcurrency = 10

// Builder rebuilds the community layer.
type Builder struct {
	store    graph.Store
	mutator  graph.Mutator
	composer compose.Client
	embed    embedder.Client
	logger   *slog.Logger
}

// NewBuilder creates a community builder. The store must also implement
// graph.Mutator.
func NewBuilder(store graph.Store, mutator graph.Mutator, composer compose.Client, embed embedder.Client, logger *slog.Logger) *Builder {
	return &Builder{store: store, mutator: mutator, composer: composer, embed: embed, logger: logger}
}

// Result summarizes one rebuild.
type Result struct {
	Communities int `json:"communities"`
	Members     int `json:"members"`
}

// Rebuild recomputes the community layer from the persistent relationship
// edges and replaces the previous layer atomically.
func (b *Builder) Rebuild(ctx context.Context) (*Result, error) {
	projection, err := b.buildProjection(ctx)
	if err != nil {
		return nil, fmt.Errorf("build projection: %w", err)
	}

	clusters := labelPropagation(projection)
	b.logger.Info("clustering done", "nodes", len(projection), "clusters", len(clusters))

	semaphore := make(chan struct{}, MaxBuildConcurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex

	communities := make([]*types.Entity, len(clusters))
	var buildErrors []error

	for i, cluster := range clusters {
		wg.Add(1)
		go func(i int, cluster []string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			comm, err := b.buildCommunity(ctx, cluster)
			if err != nil {
				mu.Lock()
				buildErrors = append(buildErrors, err)
				mu.Unlock()
				return
			}
			mu.Lock()
			communities[i] = comm
			mu.Unlock()
		}(i, cluster)
	}
	wg.Wait()

	if len(buildErrors) > 0 {
		return nil, fmt.Errorf("some clusters failed to build: %v", buildErrors)
	}

	membership := make(map[string]string)
	centrality := make(map[string]float64)
	for i, cluster := range clusters {
		for _, id := range cluster {
			membership[id] = communities[i].ID
		}
		for id, c := range degreeCentrality(projection, cluster) {
			centrality[id] = c
		}
	}

	if err := b.mutator.ReplaceCommunities(ctx, communities, membership, centrality); err != nil {
		return nil, fmt.Errorf("replace community layer: %w", err)
	}

	return &Result{Communities: len(communities), Members: len(membership)}, nil
}

// buildProjection derives the undirected, weighted adjacency the clustering
// runs on. Only CITES and INTERPRETED_BY edges shape topics; AFFECTED_BY
// records amendments, not subject-matter affinity, and HAS_MEMBER is itself
// the derived layer being replaced.
func (b *Builder) buildProjection(ctx context.Context) (map[string][]neighbor, error) {
	edges, err := b.mutator.Edges(ctx)
	if err != nil {
		return nil, err
	}

	weights := make(map[string]map[string]int)
	add := func(a, bID string) {
		if weights[a] == nil {
			weights[a] = make(map[string]int)
		}
		weights[a][bID]++
	}
	for _, e := range edges {
		if e.Type != types.CitesEdge && e.Type != types.InterpretedByEdge {
			continue
		}
		add(e.SourceID, e.TargetID)
		add(e.TargetID, e.SourceID)
	}

	projection := make(map[string][]neighbor, len(weights))
	for id, nbs := range weights {
		for nbID, count := range nbs {
			projection[id] = append(projection[id], neighbor{ID: nbID, EdgeCount: count})
		}
	}
	return projection, nil
}

// buildCommunity summarizes one cluster into a community entity.
func (b *Builder) buildCommunity(ctx context.Context, cluster []string) (*types.Entity, error) {
	members, err := b.store.GetEntities(ctx, cluster)
	if err != nil {
		return nil, fmt.Errorf("resolve cluster members: %w", err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("empty cluster")
	}

	summaries := make([]string, len(members))
	for i, m := range members {
		summaries[i] = m.DisplayText()
	}
	summary, err := b.hierarchicalSummarize(ctx, summaries)
	if err != nil {
		return nil, fmt.Errorf("summarize cluster: %w", err)
	}

	embedding, err := b.embed.EmbedSingle(ctx, summary)
	if err != nil {
		return nil, fmt.Errorf("embed community summary: %w", err)
	}

	return &types.Entity{
		ID:          "comm-" + uuid.New().String(),
		Kind:        types.CommunityKind,
		Title:       fmt.Sprintf("Topic around %s", members[0].Title),
		Summary:     summary,
		MemberCount: len(members),
		BuiltAt:     time.Now().UTC(),
		Embedding:   embedding,
	}, nil
}

// hierarchicalSummarize folds member summaries pairwise until one remains.
// Pairs within a round are summarized concurrently.
func (b *Builder) hierarchicalSummarize(ctx context.Context, summaries []string) (string, error) {
	if len(summaries) == 0 {
		return "", fmt.Errorf("no summaries to process")
	}

	current := make([]string, len(summaries))
	copy(current, summaries)

	for len(current) > 1 {
		var oddOneOut string
		if len(current)%2 == 1 {
			oddOneOut = current[len(current)-1]
			current = current[:len(current)-1]
		}

		pairCount := len(current) / 2
		results := make([]string, pairCount)

		var wg sync.WaitGroup
		var mu sync.Mutex
		var summarizeErrors []error

		for i := 0; i < pairCount; i++ {
			wg.Add(1)
			go func(idx int) {
				defer wg.Done()

				merged, err := b.composer.Summarize(ctx, current[idx], current[idx+pairCount])
				if err != nil {
					mu.Lock()
					summarizeErrors = append(summarizeErrors, err)
					mu.Unlock()
					return
				}
				results[idx] = merged
			}(i)
		}
		wg.Wait()

		if len(summarizeErrors) > 0 {
			return "", fmt.Errorf("summarize pairs: %w", summarizeErrors[0])
		}

		if oddOneOut != "" {
			results = append(results, oddOneOut)
		}
		current = results
	}

	return current[0], nil
}

// degreeCentrality computes each member's degree within its own cluster,
// normalized so the best-connected member scores 1.
func degreeCentrality(projection map[string][]neighbor, cluster []string) map[string]float64 {
	inCluster := make(map[string]bool, len(cluster))
	for _, id := range cluster {
		inCluster[id] = true
	}

	degrees := make(map[string]int, len(cluster))
	maxDegree := 0
	for _, id := range cluster {
		for _, nb := range projection[id] {
			if inCluster[nb.ID] {
				degrees[id] += nb.EdgeCount
			}
		}
		if degrees[id] > maxDegree {
			maxDegree = degrees[id]
		}
	}

	centrality := make(map[string]float64, len(cluster))
	for _, id := range cluster {
		if maxDegree == 0 {
			centrality[id] = 0
			continue
		}
		centrality[id] = float64(degrees[id]) / float64(maxDegree)
	}
	return centrality
}
