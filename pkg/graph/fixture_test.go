package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

func loadFixture(t *testing.T) *Fixture {
	t.Helper()
	f, err := DefaultFixture()
	require.NoError(t, err)
	emb := embedder.NewFixture()
	require.NoError(t, f.EmbedAll(context.Background(), emb.EmbedSingle))
	return f
}

func TestDefaultFixtureLoads(t *testing.T) {
	f := loadFixture(t)

	stats, err := f.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 15, stats.Entities)
	assert.Equal(t, 2, stats.Communities)
	assert.Equal(t, 8, stats.Edges)
}

func TestGetEntity(t *testing.T) {
	f := loadFixture(t)

	e, err := f.GetEntity(context.Background(), "prov-cc-1240")
	require.NoError(t, err)
	assert.Equal(t, types.ProvisionKind, e.Kind)
	assert.Equal(t, "1240", e.Number)
	assert.Equal(t, "comm-liability", e.CommunityID)

	_, err = f.GetEntity(context.Background(), "no-such-entity")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestGetEntitiesSkipsUnresolvable(t *testing.T) {
	f := loadFixture(t)

	entities, err := f.GetEntities(context.Background(), []string{"prov-cc-1240", "ghost", "prov-cc-1241"})
	require.NoError(t, err)
	require.Len(t, entities, 2)
	assert.Equal(t, "prov-cc-1240", entities[0].ID)
	assert.Equal(t, "prov-cc-1241", entities[1].ID)
}

func TestVectorSearchRanksExactSnippetFirst(t *testing.T) {
	f := loadFixture(t)
	emb := embedder.NewFixture()

	// Query identical to the snippet of art. 1240; cosine must be 1.
	vec, err := emb.EmbedSingle(context.Background(), "Civil liability for fault; reparation of damages.")
	require.NoError(t, err)

	scored, err := f.VectorSearch(context.Background(), vec, 5)
	require.NoError(t, err)
	require.NotEmpty(t, scored)
	assert.Equal(t, "prov-cc-1240", scored[0].EntityID)
	assert.InDelta(t, 1.0, scored[0].Similarity, 1e-6)

	// Communities never surface as vector candidates.
	for _, s := range scored {
		assert.NotContains(t, []string{"comm-liability", "comm-contract"}, s.EntityID)
	}
}

func TestVectorSearchInvalidLimit(t *testing.T) {
	f := loadFixture(t)
	_, err := f.VectorSearch(context.Background(), []float32{1}, 0)
	assert.ErrorIs(t, err, types.ErrInvalidLimit)
}

func TestTraverseDepthsAndOrdering(t *testing.T) {
	f := loadFixture(t)

	asOf := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	visits, err := f.Traverse(context.Background(), "prov-cc-1240",
		[]types.EdgeType{types.CitesEdge, types.InterpretedByEdge}, 2, &asOf)
	require.NoError(t, err)

	depths := make(map[string]int, len(visits))
	for _, v := range visits {
		depths[v.EntityID] = v.Depth
	}
	assert.Equal(t, 1, depths["prov-cc-1241"])
	assert.Equal(t, 1, depths["prov-cc-1242"])
	assert.Equal(t, 1, depths["prov-cc-1386"]) // citation valid in 2015
	assert.Equal(t, 1, depths["prov-cons-12"])
	assert.Equal(t, 1, depths["judg-2010-154"])
	assert.Equal(t, 2, depths["judg-1998-077"]) // via art. 1242

	// Results sorted by depth, then id.
	for i := 1; i < len(visits); i++ {
		if visits[i-1].Depth == visits[i].Depth {
			assert.Less(t, visits[i-1].EntityID, visits[i].EntityID)
		} else {
			assert.Less(t, visits[i-1].Depth, visits[i].Depth)
		}
	}
}

func TestTraverseAsOfFiltersClosedWindows(t *testing.T) {
	f := loadFixture(t)
	edgeTypes := []types.EdgeType{types.CitesEdge}

	// The art. 1386 citation was valid 1998-05-19 through 2016-09-30.
	within := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
	visits, err := f.Traverse(context.Background(), "prov-cc-1386", edgeTypes, 1, &within)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "prov-cc-1240", visits[0].EntityID)

	after := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	visits, err = f.Traverse(context.Background(), "prov-cc-1386", edgeTypes, 1, &after)
	require.NoError(t, err)
	assert.Empty(t, visits)

	// Nil asOf admits only open-ended windows.
	visits, err = f.Traverse(context.Background(), "prov-cc-1386", edgeTypes, 1, nil)
	require.NoError(t, err)
	assert.Empty(t, visits)
}

func TestTraverseAmendmentEdge(t *testing.T) {
	f := loadFixture(t)
	edgeTypes := []types.EdgeType{types.AffectedByEdge}

	// The amendment took legal effect 2016-10-01.
	before := time.Date(2016, 9, 1, 0, 0, 0, 0, time.UTC)
	visits, err := f.Traverse(context.Background(), "prov-cc-1240", edgeTypes, 1, &before)
	require.NoError(t, err)
	assert.Empty(t, visits)

	after := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)
	visits, err = f.Traverse(context.Background(), "prov-cc-1240", edgeTypes, 1, &after)
	require.NoError(t, err)
	require.Len(t, visits, 1)
	assert.Equal(t, "gaz-2016-35", visits[0].EntityID)
}

func TestTraverseUnknownOrigin(t *testing.T) {
	f := loadFixture(t)
	_, err := f.Traverse(context.Background(), "ghost", nil, 1, nil)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCommunityMembersOrderedByCentrality(t *testing.T) {
	f := loadFixture(t)

	members, err := f.CommunityMembers(context.Background(), "comm-liability")
	require.NoError(t, err)
	require.Len(t, members, 7)
	assert.Equal(t, "prov-cc-1240", members[0]) // centrality 0.90
	assert.Equal(t, "prov-cc-1242", members[1]) // 0.70
	assert.Equal(t, "prov-cc-1241", members[2]) // 0.60
	// Equal centrality (0.50) breaks by ascending id.
	assert.Equal(t, "judg-1998-077", members[3])
	assert.Equal(t, "judg-2010-154", members[4])
}

func TestReplaceCommunities(t *testing.T) {
	f := loadFixture(t)
	ctx := context.Background()

	newComm := &types.Entity{ID: "comm-new", Kind: types.CommunityKind, Title: "New topic"}
	err := f.ReplaceCommunities(ctx,
		[]*types.Entity{newComm},
		map[string]string{"prov-cc-1240": "comm-new"},
		map[string]float64{"prov-cc-1240": 1.0},
	)
	require.NoError(t, err)

	communities, err := f.Communities(ctx)
	require.NoError(t, err)
	require.Len(t, communities, 1)
	assert.Equal(t, "comm-new", communities[0].ID)

	e, err := f.GetEntity(ctx, "prov-cc-1240")
	require.NoError(t, err)
	assert.Equal(t, "comm-new", e.CommunityID)
	assert.Equal(t, 1.0, e.Centrality)

	// Entities outside the new membership lost their old assignment.
	e, err = f.GetEntity(ctx, "prov-cc-1103")
	require.NoError(t, err)
	assert.Empty(t, e.CommunityID)
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.InDelta(t, -1.0, Cosine([]float32{1, 0}, []float32{-1, 0}), 1e-9)
	assert.Equal(t, 0.0, Cosine([]float32{0, 0}, []float32{1, 0}))
	assert.Equal(t, 0.0, Cosine([]float32{1}, []float32{1, 0}))
}

func TestCentroid(t *testing.T) {
	c := Centroid([][]float32{{1, 0}, {0, 1}})
	require.Len(t, c, 2)
	assert.InDelta(t, 0.5, c[0], 1e-6)
	assert.InDelta(t, 0.5, c[1], 1e-6)

	assert.Nil(t, Centroid(nil))
}
