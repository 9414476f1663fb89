package graph

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

//go:embed corpus.yaml
var embeddedCorpus []byte

// Fixture is the deterministic in-memory Store used when no graph database
// is configured, and by tests. All result ordering is stable: ties are
// broken by ascending entity id everywhere.
type Fixture struct {
	mu       sync.RWMutex
	entities map[string]*types.Entity
	edges    []*types.Edge
	adjacent map[string][]*types.Edge // undirected adjacency, both endpoints
}

type corpusFile struct {
	Entities []*types.Entity `yaml:"entities"`
	Edges    []*types.Edge   `yaml:"edges"`
}

// NewFixture returns an empty fixture store.
func NewFixture() *Fixture {
	return &Fixture{
		entities: make(map[string]*types.Entity),
		adjacent: make(map[string][]*types.Edge),
	}
}

// NewFixtureFromYAML builds a fixture store from a YAML corpus.
func NewFixtureFromYAML(data []byte) (*Fixture, error) {
	var corpus corpusFile
	if err := yaml.Unmarshal(data, &corpus); err != nil {
		return nil, fmt.Errorf("failed to parse fixture corpus: %w", err)
	}
	f := NewFixture()
	for _, e := range corpus.Entities {
		if err := f.AddEntity(e); err != nil {
			return nil, err
		}
	}
	for _, e := range corpus.Edges {
		if err := f.AddEdge(e); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// DefaultFixture loads the embedded civil-liability corpus.
func DefaultFixture() (*Fixture, error) {
	return NewFixtureFromYAML(embeddedCorpus)
}

// AddEntity inserts an entity. Used by tests and the corpus loader.
func (f *Fixture) AddEntity(e *types.Entity) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("entity %q: %w", e.ID, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entities[e.ID] = e
	return nil
}

// AddEdge inserts an edge between existing entities.
func (f *Fixture) AddEdge(e *types.Edge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entities[e.SourceID]; !ok {
		return fmt.Errorf("edge %q: source %q: %w", e.ID, e.SourceID, types.ErrNotFound)
	}
	if _, ok := f.entities[e.TargetID]; !ok {
		return fmt.Errorf("edge %q: target %q: %w", e.ID, e.TargetID, types.ErrNotFound)
	}
	if e.Event != nil {
		if err := e.Event.Validate(); err != nil {
			return fmt.Errorf("edge %q: %w", e.ID, err)
		}
	}
	f.edges = append(f.edges, e)
	f.adjacent[e.SourceID] = append(f.adjacent[e.SourceID], e)
	f.adjacent[e.TargetID] = append(f.adjacent[e.TargetID], e)
	return nil
}

// EmbedAll computes and stores an embedding for every non-community entity
// using the given function. The fixture corpus ships without vectors so the
// embedding model stays a construction-time choice.
func (f *Fixture) EmbedAll(ctx context.Context, embed func(ctx context.Context, text string) ([]float32, error)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.entities))
	for id := range f.entities {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e := f.entities[id]
		if e.Kind == types.CommunityKind {
			continue
		}
		vec, err := embed(ctx, e.DisplayText())
		if err != nil {
			return fmt.Errorf("failed to embed entity %q: %w", id, err)
		}
		e.Embedding = vec
	}
	return nil
}

// GetEntity implements Store.
func (f *Fixture) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.entities[id]
	if !ok {
		return nil, fmt.Errorf("entity %q: %w", id, types.ErrNotFound)
	}
	return e, nil
}

// GetEntities implements Store. Unresolvable ids are skipped.
func (f *Fixture) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*types.Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := f.entities[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

// VectorSearch implements Store.
func (f *Fixture) VectorSearch(ctx context.Context, embedding []float32, topK int) ([]ScoredEntity, error) {
	if topK <= 0 {
		return nil, types.ErrInvalidLimit
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	scored := make([]ScoredEntity, 0, len(f.entities))
	for id, e := range f.entities {
		if e.Kind == types.CommunityKind || len(e.Embedding) == 0 {
			continue
		}
		scored = append(scored, ScoredEntity{EntityID: id, Similarity: Cosine(embedding, e.Embedding)})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Similarity != scored[j].Similarity {
			return scored[i].Similarity > scored[j].Similarity
		}
		return scored[i].EntityID < scored[j].EntityID
	})
	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

// Traverse implements Store with an undirected breadth-first walk. Edges are
// followed in both directions; an edge is crossed only when its validity
// window admits asOf (nil asOf admits open-ended windows only).
func (f *Fixture) Traverse(ctx context.Context, originID string, edgeTypes []types.EdgeType, maxHops int, asOf *time.Time) ([]Visit, error) {
	if maxHops < 1 {
		return []Visit{}, nil
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.entities[originID]; !ok {
		return nil, fmt.Errorf("entity %q: %w", originID, types.ErrNotFound)
	}
	wanted := make(map[types.EdgeType]bool, len(edgeTypes))
	for _, t := range edgeTypes {
		wanted[t] = true
	}

	seen := map[string]int{originID: 0}
	frontier := []string{originID}
	for depth := 1; depth <= maxHops && len(frontier) > 0; depth++ {
		var next []string
		for _, id := range frontier {
			for _, edge := range f.adjacent[id] {
				if len(wanted) > 0 && !wanted[edge.Type] {
					continue
				}
				if !edgeAdmits(edge, asOf) {
					continue
				}
				other := edge.TargetID
				if other == id {
					other = edge.SourceID
				}
				if _, ok := seen[other]; ok {
					continue
				}
				seen[other] = depth
				next = append(next, other)
			}
		}
		frontier = next
	}

	visits := make([]Visit, 0, len(seen)-1)
	for id, depth := range seen {
		if id == originID {
			continue
		}
		visits = append(visits, Visit{EntityID: id, Depth: depth})
	}
	sort.Slice(visits, func(i, j int) bool {
		if visits[i].Depth != visits[j].Depth {
			return visits[i].Depth < visits[j].Depth
		}
		return visits[i].EntityID < visits[j].EntityID
	})
	return visits, nil
}

// edgeAdmits applies the bi-temporal filter: with an asOf date the validity
// window must cover it; without one, only still-open windows pass.
func edgeAdmits(edge *types.Edge, asOf *time.Time) bool {
	if edge.Event == nil {
		return true
	}
	if asOf != nil {
		return edge.Event.ValidAt(*asOf)
	}
	return edge.Event.ValidTo == nil
}

// Communities implements Store.
func (f *Fixture) Communities(ctx context.Context) ([]*types.Entity, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	var out []*types.Entity
	for _, e := range f.entities {
		if e.Kind == types.CommunityKind {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// CommunityMembers implements Store.
func (f *Fixture) CommunityMembers(ctx context.Context, communityID string) ([]string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if _, ok := f.entities[communityID]; !ok {
		return nil, fmt.Errorf("community %q: %w", communityID, types.ErrNotFound)
	}
	var members []*types.Entity
	for _, e := range f.entities {
		if e.Kind != types.CommunityKind && e.CommunityID == communityID {
			members = append(members, e)
		}
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].Centrality != members[j].Centrality {
			return members[i].Centrality > members[j].Centrality
		}
		return members[i].ID < members[j].ID
	})
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return ids, nil
}

// Stats implements Store.
func (f *Fixture) Stats(ctx context.Context) (*Stats, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	s := &Stats{Edges: len(f.edges)}
	for _, e := range f.entities {
		if e.Kind == types.CommunityKind {
			s.Communities++
		} else {
			s.Entities++
		}
	}
	return s, nil
}

// Close implements Store.
func (f *Fixture) Close() error { return nil }

// Edges implements Mutator.
func (f *Fixture) Edges(ctx context.Context) ([]*types.Edge, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]*types.Edge, len(f.edges))
	copy(out, f.edges)
	return out, nil
}

// ReplaceCommunities implements Mutator: drops the old community layer and
// installs the new one atomically under the write lock.
func (f *Fixture) ReplaceCommunities(ctx context.Context, communities []*types.Entity, membership map[string]string, centrality map[string]float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.entities {
		if e.Kind == types.CommunityKind {
			delete(f.entities, id)
			continue
		}
		e.CommunityID = ""
	}
	for _, c := range communities {
		if c.Kind != types.CommunityKind {
			return fmt.Errorf("entity %q is not a community", c.ID)
		}
		f.entities[c.ID] = c
	}
	for memberID, communityID := range membership {
		e, ok := f.entities[memberID]
		if !ok {
			continue
		}
		e.CommunityID = communityID
		if c, ok := centrality[memberID]; ok {
			e.Centrality = c
		}
	}
	return nil
}

var (
	_ Store   = (*Fixture)(nil)
	_ Mutator = (*Fixture)(nil)
)
