// Package graph provides typed read access to the legal knowledge graph:
// entity lookup, vector search, bounded traversal with as-of filtering, and
// the precomputed community layer. Two implementations exist behind the same
// interface, a Neo4j-backed store and a deterministic fixture store, and the
// choice is made at construction time, never inside request logic.
package graph

import (
	"context"
	"time"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// ScoredEntity pairs an entity id with a similarity score.
type ScoredEntity struct {
	EntityID   string
	Similarity float64
}

// Visit is one node reached by a traversal, with the hop depth at which it
// was first seen (origin excluded; depth starts at 1).
type Visit struct {
	EntityID string
	Depth    int
}

// Stats summarizes the stored graph.
type Stats struct {
	Entities    int `json:"entities"`
	Edges       int `json:"edges"`
	Communities int `json:"communities"`
}

// Store is the read surface the retrieval agents consume. Bi-temporal
// filtering is pushed down here: Traverse applies the asOf date against edge
// validity windows, and callers never date-filter raw records themselves.
// Implementations are safe for concurrent use.
type Store interface {
	// GetEntity returns the entity with the given id, or
	// types.ErrNotFound.
	GetEntity(ctx context.Context, id string) (*types.Entity, error)

	// GetEntities returns the entities for the given ids, skipping ids
	// that do not resolve. Order follows the input ids.
	GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error)

	// VectorSearch returns up to topK entity ids ranked by cosine
	// similarity against the given embedding, highest first.
	VectorSearch(ctx context.Context, embedding []float32, topK int) ([]ScoredEntity, error)

	// Traverse walks outward from origin along the given edge types up to
	// maxHops, returning each reached node once at its minimum depth.
	// When asOf is non-nil only edges whose validity window covers asOf
	// are followed; when nil the latest valid state is used (open-ended
	// windows only).
	Traverse(ctx context.Context, originID string, edgeTypes []types.EdgeType, maxHops int, asOf *time.Time) ([]Visit, error)

	// Communities returns the community entities of the derived layer.
	Communities(ctx context.Context) ([]*types.Entity, error)

	// CommunityMembers returns the member ids of a community, sorted by
	// descending centrality then ascending id.
	CommunityMembers(ctx context.Context, communityID string) ([]string, error)

	// Stats reports graph size, used by readiness checks.
	Stats(ctx context.Context) (*Stats, error)

	// Close releases held resources.
	Close() error
}

// Mutator is the write surface used only by the offline community builder.
// The derived community layer is replaced atomically; request-path code
// never mutates the graph.
type Mutator interface {
	// ReplaceCommunities swaps the community layer: communities are the
	// new community entities, membership maps member entity id to
	// community id, and centrality maps member id to its normalized
	// degree centrality.
	ReplaceCommunities(ctx context.Context, communities []*types.Entity, membership map[string]string, centrality map[string]float64) error

	// Edges returns the persistent relationship edges of the graph,
	// excluding the derived HAS_MEMBER layer.
	Edges(ctx context.Context) ([]*types.Edge, error)
}
