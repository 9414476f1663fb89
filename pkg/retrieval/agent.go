// Package retrieval implements the three evidence-gathering agents over the
// legal graph and the reciprocal rank fusion that merges their output.
package retrieval

import (
	"context"
	"time"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// Agent is one retrieval strategy. Agents are stateless between requests and
// safe for concurrent use; each call produces a ranked hit list scoped to
// that request.
type Agent interface {
	// Name identifies the agent in diagnostics and fused provenance.
	Name() string

	// Retrieve answers the query with up to maxResults ranked hits. A
	// non-nil asOf restricts traversal to edges valid on that date. An
	// empty result with a nil error means the agent found nothing, which
	// is not a failure.
	Retrieve(ctx context.Context, query string, asOf *time.Time, maxResults int) ([]types.RetrievalHit, error)
}

const (
	// AgentLocal names the entity-neighborhood agent.
	AgentLocal = "local"
	// AgentGlobal names the community-centroid agent.
	AgentGlobal = "global"
	// AgentDrift names the community-anchored traversal agent.
	AgentDrift = "drift"
)

// relationEdges is the traversable relation set. The derived HAS_MEMBER
// layer is never walked by agents.
var relationEdges = []types.EdgeType{types.CitesEdge, types.InterpretedByEdge, types.AffectedByEdge}

// hopDamping scales a neighbor's score per hop away from its seed.
const hopDamping = 0.5

// centralityBoost weights the local agent's similarity scores by degree
// centrality so well-connected provisions outrank peripheral ones at equal
// similarity.
const centralityBoost = 0.25
