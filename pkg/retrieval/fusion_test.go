package retrieval

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jurisgraph/jurisgraph/pkg/embedder"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

func hit(agent, id string, rank int) types.RetrievalHit {
	return types.RetrievalHit{EntityID: id, Agent: agent, Rank: rank, Score: 1.0 / float64(rank)}
}

func TestMergeRRFFormula(t *testing.T) {
	lists := [][]types.RetrievalHit{
		{hit(AgentLocal, "a", 1), hit(AgentLocal, "b", 2)},
		{hit(AgentGlobal, "b", 1), hit(AgentGlobal, "c", 2)},
	}

	fused := Merge(lists, 60, 0)
	require.Len(t, fused, 3)

	// b appears at rank 2 and rank 1: 1/62 + 1/61.
	assert.Equal(t, "b", fused[0].EntityID)
	assert.InDelta(t, 1.0/62+1.0/61, fused[0].Score, 1e-12)
	require.Len(t, fused[0].Agents, 2)

	// a at rank 1 beats c at rank 2.
	assert.Equal(t, "a", fused[1].EntityID)
	assert.InDelta(t, 1.0/61, fused[1].Score, 1e-12)
	assert.Equal(t, "c", fused[2].EntityID)
	assert.InDelta(t, 1.0/62, fused[2].Score, 1e-12)
}

func TestMergeTieBreaks(t *testing.T) {
	// u and v both appear once at rank 1, from different agents: identical
	// score, identical agent count. Ascending entity id wins.
	lists := [][]types.RetrievalHit{
		{hit(AgentLocal, "v", 1)},
		{hit(AgentGlobal, "u", 1)},
	}
	fused := Merge(lists, 60, 0)
	require.Len(t, fused, 2)
	assert.Equal(t, "u", fused[0].EntityID)
	assert.Equal(t, "v", fused[1].EntityID)
}

func TestMergeAgentCountTieBreak(t *testing.T) {
	// z at rank 62 from two agents scores 1/122+1/122 = 1/61, exactly
	// matching w's single rank-1 hit. More contributing agents wins.
	lists := [][]types.RetrievalHit{
		{hit(AgentLocal, "z", 62), hit(AgentLocal, "w", 1)},
		{hit(AgentGlobal, "z", 62)},
	}
	fused := Merge(lists, 60, 0)
	require.Len(t, fused, 2)
	assert.Equal(t, "z", fused[0].EntityID)
	assert.InDelta(t, fused[0].Score, fused[1].Score, 1e-12)
	assert.Len(t, fused[0].Agents, 2)
	assert.Len(t, fused[1].Agents, 1)
}

func TestMergeDeterministicUnderPermutation(t *testing.T) {
	lists := [][]types.RetrievalHit{
		{hit(AgentLocal, "a", 1), hit(AgentLocal, "b", 2), hit(AgentLocal, "c", 3)},
		{hit(AgentGlobal, "c", 1), hit(AgentGlobal, "d", 2)},
		{hit(AgentDrift, "b", 1), hit(AgentDrift, "d", 2), hit(AgentDrift, "e", 3)},
	}

	want := Merge(lists, 60, 0)
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := make([][]types.RetrievalHit, len(lists))
		copy(shuffled, lists)
		rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })

		got := Merge(shuffled, 60, 0)
		require.Equal(t, want, got, "fusion must not depend on list order")
	}
}

func TestMergeLimit(t *testing.T) {
	lists := [][]types.RetrievalHit{
		{hit(AgentLocal, "a", 1), hit(AgentLocal, "b", 2), hit(AgentLocal, "c", 3)},
	}
	fused := Merge(lists, 60, 2)
	assert.Len(t, fused, 2)
}

func TestMergeEmpty(t *testing.T) {
	assert.Empty(t, Merge(nil, 60, 10))
	assert.Empty(t, Merge([][]types.RetrievalHit{{}, {}}, 60, 10))
}

func TestMergeDefaultConstant(t *testing.T) {
	lists := [][]types.RetrievalHit{{hit(AgentLocal, "a", 1)}}
	fused := Merge(lists, 0, 0)
	require.Len(t, fused, 1)
	assert.InDelta(t, 1.0/61, fused[0].Score, 1e-12)
}

func TestAttachCitations(t *testing.T) {
	store := loadStore(t)

	fused := []types.FusedResult{
		{EntityID: "prov-cc-1240", Citation: types.Citation{EntityID: "prov-cc-1240"}},
		{EntityID: "ghost", Citation: types.Citation{EntityID: "ghost", Snippet: "kept"}},
	}
	require.NoError(t, AttachCitations(context.Background(), store, fused))

	assert.Equal(t, "Civil Code art. 1240", fused[0].Citation.Title)
	assert.Equal(t, types.ProvisionKind, fused[0].Citation.Kind)
	assert.Equal(t, "1240", fused[0].Citation.Number)

	// Unresolvable entities keep their snippet-only citation.
	assert.Equal(t, "kept", fused[1].Citation.Snippet)
	assert.Empty(t, fused[1].Citation.Title)
}

// loadStore builds the embedded corpus with fixture embeddings.
func loadStore(t *testing.T) graph.Store {
	t.Helper()
	f, err := graph.DefaultFixture()
	require.NoError(t, err)
	emb := embedder.NewFixture()
	require.NoError(t, f.EmbedAll(context.Background(), emb.EmbedSingle))
	return f
}
