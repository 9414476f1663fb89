package retrieval

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

func testConfig() config.RetrievalConfig {
	return config.RetrievalConfig{
		RequestBudget:       30 * time.Second,
		AgentBudgetFraction: 0.6,
		MinSimilarity:       0.25,
		CommunityThreshold:  0.30,
		MaxCommunities:      3,
		SeedsPerCommunity:   3,
		HopLimit:            2,
		RRFConstant:         60,
		ContextResults:      8,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func hitIDs(hits []types.RetrievalHit) []string {
	ids := make([]string, len(hits))
	for i, h := range hits {
		ids[i] = h.EntityID
	}
	return ids
}

func TestLocalAgentRanksExactMatchFirst(t *testing.T) {
	store := loadStore(t)
	agent := NewLocalAgent(store, embedder.NewFixture(), testConfig(), discardLogger())

	hits, err := agent.Retrieve(context.Background(), "Civil liability for fault; reparation of damages.", nil, 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	// Similarity 1.0 lifted by the centrality weight of the corpus entry.
	assert.Equal(t, "prov-cc-1240", hits[0].EntityID)
	assert.InDelta(t, 1+centralityBoost*0.90, hits[0].Score, 1e-6)

	// One-hop expansion pulls in the citing provisions even when their
	// own text is far from the query.
	assert.Contains(t, hitIDs(hits), "prov-cc-1241")
	assert.Contains(t, hitIDs(hits), "prov-cc-1242")

	// Ranks are 1-based and contiguous, scores never increase.
	for i, h := range hits {
		assert.Equal(t, i+1, h.Rank)
		assert.Equal(t, AgentLocal, h.Agent)
		if i > 0 {
			assert.LessOrEqual(t, h.Score, hits[i-1].Score)
		}
	}
}

func TestLocalAgentAsOfControlsExpansion(t *testing.T) {
	store := loadStore(t)
	agent := NewLocalAgent(store, embedder.NewFixture(), testConfig(), discardLogger())
	query := "Civil liability for fault; reparation of damages."

	// The gazette is reachable only over the amendment edge, which took
	// legal effect 2016-10-01. Its own text shares nothing with the query.
	before := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	hits, err := agent.Retrieve(context.Background(), query, &before, 15)
	require.NoError(t, err)
	assert.NotContains(t, hitIDs(hits), "gaz-2016-35")

	after := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	hits, err = agent.Retrieve(context.Background(), query, &after, 15)
	require.NoError(t, err)
	assert.Contains(t, hitIDs(hits), "gaz-2016-35")
}

func TestLocalAgentNeighborScoreIsDamped(t *testing.T) {
	store := loadStore(t)
	agent := NewLocalAgent(store, embedder.NewFixture(), testConfig(), discardLogger())

	after := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	hits, err := agent.Retrieve(context.Background(), "Civil liability for fault; reparation of damages.", &after, 15)
	require.NoError(t, err)

	for _, h := range hits {
		if h.EntityID == "gaz-2016-35" {
			// Seed similarity 1.0, one hop away.
			assert.InDelta(t, hopDamping, h.Score, 1e-6)
			return
		}
	}
	t.Fatal("gazette not retrieved")
}

func TestGlobalAgentAnchorsOnNearestCommunity(t *testing.T) {
	store := loadStore(t)
	cfg := testConfig()
	// A threshold no centroid can clear forces the single-best fallback.
	cfg.CommunityThreshold = 0.99
	centroids := NewCentroids(store, NewMemoryCentroidCache(time.Hour))
	agent := NewGlobalAgent(store, embedder.NewFixture(), centroids, cfg, discardLogger())

	hits, err := agent.Retrieve(context.Background(), "Good faith in contract negotiation and performance.", nil, 10)
	require.NoError(t, err)

	// Only the contract community is anchored, so only its two members
	// surface, ordered by centrality.
	require.Len(t, hits, 2)
	assert.Equal(t, "prov-cc-1103", hits[0].EntityID)
	assert.Equal(t, "prov-cc-1104", hits[1].EntityID)
	assert.Equal(t, "comm-contract", hits[0].CommunityID)
}

func TestGlobalAgentMultipleAnchors(t *testing.T) {
	store := loadStore(t)
	cfg := testConfig()
	cfg.CommunityThreshold = 0.0
	centroids := NewCentroids(store, NewMemoryCentroidCache(time.Hour))
	agent := NewGlobalAgent(store, embedder.NewFixture(), centroids, cfg, discardLogger())

	hits, err := agent.Retrieve(context.Background(), "liability and contracts", nil, 15)
	require.NoError(t, err)

	communities := make(map[string]bool)
	for _, h := range hits {
		communities[h.CommunityID] = true
	}
	assert.True(t, communities["comm-liability"])
	assert.True(t, communities["comm-contract"])
}

func TestAgentsEmptyWithoutCommunities(t *testing.T) {
	f, err := graph.DefaultFixture()
	require.NoError(t, err)
	emb := embedder.NewFixture()
	require.NoError(t, f.EmbedAll(context.Background(), emb.EmbedSingle))
	require.NoError(t, f.ReplaceCommunities(context.Background(), nil, nil, nil))

	centroids := NewCentroids(f, NewMemoryCentroidCache(time.Hour))

	// A graph without a community layer is a valid state, seen before the
	// first rebuild. Both community-anchored agents return empty, not an
	// error.
	hits, err := NewGlobalAgent(f, emb, centroids, testConfig(), discardLogger()).
		Retrieve(context.Background(), "liability", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = NewDriftAgent(f, emb, centroids, testConfig(), discardLogger()).
		Retrieve(context.Background(), "liability", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestLocalAgentRepeatQueryIsStable(t *testing.T) {
	store := loadStore(t)
	agent := NewLocalAgent(store, embedder.NewFixture(), testConfig(), discardLogger())
	asOf := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	first, err := agent.Retrieve(context.Background(), "Civil liability for fault; reparation of damages.", &asOf, 10)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := agent.Retrieve(context.Background(), "Civil liability for fault; reparation of damages.", &asOf, 10)
	require.NoError(t, err)

	// Same query, same as-of date: identical ids, order, scores and ranks.
	assert.Equal(t, first, second)
}

func TestDriftAgentReachesBeyondAnchorCommunity(t *testing.T) {
	store := loadStore(t)
	centroids := NewCentroids(store, NewMemoryCentroidCache(time.Hour))
	agent := NewDriftAgent(store, embedder.NewFixture(), centroids, testConfig(), discardLogger())

	asOf := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	hits, err := agent.Retrieve(context.Background(), "Civil liability for fault; reparation of damages.", &asOf, 15)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	ids := hitIDs(hits)
	// The gazette carries no community assignment at all; drift found it
	// by walking the amendment edge out of a seed.
	assert.Contains(t, ids, "gaz-2016-35")
	// Interpreting judgments are reachable within the hop limit.
	assert.Contains(t, ids, "judg-1998-077")

	for _, h := range hits {
		assert.Equal(t, AgentDrift, h.Agent)
	}
}

func TestDriftAgentSeedScores(t *testing.T) {
	store := loadStore(t)
	centroids := NewCentroids(store, NewMemoryCentroidCache(time.Hour))
	agent := NewDriftAgent(store, embedder.NewFixture(), centroids, testConfig(), discardLogger())

	hits, err := agent.Retrieve(context.Background(), "Civil liability for fault; reparation of damages.", nil, 15)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	scores := make(map[string]float64, len(hits))
	for _, h := range hits {
		scores[h.EntityID] = h.Score
	}
	// Seeds carry their undecayed base score; anything reached by
	// traversal is worth strictly less than the seed it came from.
	require.Contains(t, scores, "prov-cc-1240")
	require.Contains(t, scores, "prov-cons-12")
	assert.Greater(t, scores["prov-cc-1240"], scores["prov-cons-12"])
}

// Every drift hit must be reachable from an anchor seed within the hop
// limit. Checked against a seeded random graph with an independent
// breadth-first walk over the edges the test itself created.
func TestDriftAgentHitsReachableFromAnchorSeeds(t *testing.T) {
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))
	vocab := []string{"liability", "contract", "damage", "fault", "notice", "transfer", "penalty", "remedy", "breach", "warranty"}

	f := graph.NewFixture()
	var ids []string
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("prov-%03d", i)
		text := "provision"
		for w := 0; w < 3; w++ {
			text += " " + vocab[rng.Intn(len(vocab))]
		}
		require.NoError(t, f.AddEntity(&types.Entity{ID: id, Kind: types.ProvisionKind, Title: id, Text: text}))
		ids = append(ids, id)
	}

	edgeKinds := []types.EdgeType{types.CitesEdge, types.InterpretedByEdge, types.AffectedByEdge}
	adjacency := make(map[string][]string)
	for i := 0; i < 90; i++ {
		src, dst := ids[rng.Intn(len(ids))], ids[rng.Intn(len(ids))]
		if src == dst {
			continue
		}
		require.NoError(t, f.AddEdge(&types.Edge{
			ID:       fmt.Sprintf("edge-%03d", i),
			Type:     edgeKinds[i%len(edgeKinds)],
			SourceID: src,
			TargetID: dst,
		}))
		adjacency[src] = append(adjacency[src], dst)
		adjacency[dst] = append(adjacency[dst], src)
	}

	// Two communities over the first thirty provisions; the last ten stay
	// unassigned so traversal can leave the anchor communities.
	communities := []*types.Entity{
		{ID: "comm-a", Kind: types.CommunityKind, Title: "Community A"},
		{ID: "comm-b", Kind: types.CommunityKind, Title: "Community B"},
	}
	membership := make(map[string]string)
	centrality := make(map[string]float64)
	for i, id := range ids[:30] {
		membership[id] = communities[i%2].ID
		centrality[id] = 0.1 + 0.9*rng.Float64()
	}
	require.NoError(t, f.ReplaceCommunities(ctx, communities, membership, centrality))

	emb := embedder.NewFixture()
	require.NoError(t, f.EmbedAll(ctx, emb.EmbedSingle))

	cfg := testConfig()
	cfg.CommunityThreshold = 0 // anchor every community
	agent := NewDriftAgent(f, emb, NewCentroids(f, NewMemoryCentroidCache(time.Hour)), cfg, discardLogger())

	// Allowed set: anchor seeds plus everything within hop_limit of one,
	// computed without going through the store.
	allowed := make(map[string]bool)
	for _, comm := range communities {
		members, err := f.CommunityMembers(ctx, comm.ID)
		require.NoError(t, err)
		if len(members) > cfg.SeedsPerCommunity {
			members = members[:cfg.SeedsPerCommunity]
		}
		for _, seed := range members {
			visited := map[string]bool{seed: true}
			frontier := []string{seed}
			for depth := 0; depth < cfg.HopLimit; depth++ {
				var next []string
				for _, id := range frontier {
					for _, nb := range adjacency[id] {
						if !visited[nb] {
							visited[nb] = true
							next = append(next, nb)
						}
					}
				}
				frontier = next
			}
			for id := range visited {
				allowed[id] = true
			}
		}
	}

	hits, err := agent.Retrieve(ctx, "provision liability remedy", nil, 40)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Truef(t, allowed[h.EntityID], "hit %s not reachable from an anchor seed within %d hops", h.EntityID, cfg.HopLimit)
	}
}

func TestCentroidsComputeOnMissThenCache(t *testing.T) {
	store := loadStore(t)
	ctx := context.Background()
	centroids := NewCentroids(store, NewMemoryCentroidCache(time.Hour))

	first, err := centroids.For(ctx, "comm-contract")
	require.NoError(t, err)
	require.Len(t, first, embedder.FixtureDimensions)

	// Drop the community from the store; the cached centroid survives.
	require.NoError(t, store.(graph.Mutator).ReplaceCommunities(ctx, nil, nil, nil))
	second, err := centroids.For(ctx, "comm-contract")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMemoryCentroidCacheTTL(t *testing.T) {
	cache := NewMemoryCentroidCache(time.Minute)
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return base }

	require.NoError(t, cache.Set("comm-x", []float32{1, 2, 3}))
	got, ok := cache.Get("comm-x")
	require.True(t, ok)
	assert.Equal(t, []float32{1, 2, 3}, got)

	cache.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, ok = cache.Get("comm-x")
	assert.False(t, ok)
}

func TestBadgerCentroidCacheRoundTrip(t *testing.T) {
	cache, err := NewBadgerCentroidCache(t.TempDir(), time.Hour)
	require.NoError(t, err)
	defer cache.Close()

	vec := []float32{0.25, -1.5, 3}
	require.NoError(t, cache.Set("comm-y", vec))

	got, ok := cache.Get("comm-y")
	require.True(t, ok)
	assert.Equal(t, vec, got)

	_, ok = cache.Get("comm-missing")
	assert.False(t, ok)
}
