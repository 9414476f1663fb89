package graph

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/db"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// Neo4jStore implements Store against a Neo4j database. Entities are nodes
// labeled by kind, relationships carry validity windows as valid_from /
// valid_to properties, and provision embeddings live in a vector index
// named by vectorIndex.
type Neo4jStore struct {
	client      neo4j.DriverWithContext
	database    string
	vectorIndex string
}

// Neo4jConfig holds connection settings for the Neo4j store.
type Neo4jConfig struct {
	URI         string
	Username    string
	Password    string
	Database    string
	VectorIndex string
}

// NewNeo4jStore creates a Neo4j-backed store.
func NewNeo4jStore(cfg Neo4jConfig) (*Neo4jStore, error) {
	client, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	database := cfg.Database
	if database == "" {
		database = "neo4j"
	}
	index := cfg.VectorIndex
	if index == "" {
		index = "entity_embedding"
	}
	return &Neo4jStore{client: client, database: database, vectorIndex: index}, nil
}

func (s *Neo4jStore) session(ctx context.Context) neo4j.SessionWithContext {
	return s.client.NewSession(ctx, neo4j.SessionConfig{DatabaseName: s.database})
}

// GetEntity implements Store.
func (s *Neo4jStore) GetEntity(ctx context.Context, id string) (*types.Entity, error) {
	entities, err := s.GetEntities(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(entities) == 0 {
		return nil, fmt.Errorf("entity %q: %w", id, types.ErrNotFound)
	}
	return entities[0], nil
}

// GetEntities implements Store.
func (s *Neo4jStore) GetEntities(ctx context.Context, ids []string) ([]*types.Entity, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			UNWIND $ids AS id
			MATCH (n:LegalEntity {id: id})
			RETURN n
		`, map[string]any{"ids": ids})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch entities: %w", err)
	}

	records := result.([]*db.Record)
	entities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		value, found := record.Get("n")
		if !found {
			continue
		}
		node, ok := value.(dbtype.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected type for entity node: %T", value)
		}
		entities = append(entities, entityFromNode(node))
	}
	return entities, nil
}

// VectorSearch implements Store using the database vector index.
func (s *Neo4jStore) VectorSearch(ctx context.Context, embedding []float32, topK int) ([]ScoredEntity, error) {
	if topK <= 0 {
		return nil, types.ErrInvalidLimit
	}
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			CALL db.index.vector.queryNodes($index, $topK, $embedding)
			YIELD node, score
			RETURN node.id AS id, score
			ORDER BY score DESC, id ASC
		`, map[string]any{
			"index":     s.vectorIndex,
			"topK":      topK,
			"embedding": toFloat64s(embedding),
		})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	records := result.([]*db.Record)
	scored := make([]ScoredEntity, 0, len(records))
	for _, record := range records {
		id, _ := record.Get("id")
		score, _ := record.Get("score")
		idStr, ok := id.(string)
		if !ok {
			continue
		}
		sim, _ := score.(float64)
		scored = append(scored, ScoredEntity{EntityID: idStr, Similarity: sim})
	}
	return scored, nil
}

// Traverse implements Store. The hop bound is interpolated into the
// variable-length pattern because Cypher does not parameterize it; asOf
// filtering is applied to every relationship on the path.
func (s *Neo4jStore) Traverse(ctx context.Context, originID string, edgeTypes []types.EdgeType, maxHops int, asOf *time.Time) ([]Visit, error) {
	if maxHops < 1 {
		return []Visit{}, nil
	}

	relPattern := relationshipPattern(edgeTypes)
	query := fmt.Sprintf(`
		MATCH path = (origin:LegalEntity {id: $origin})-[:%s*1..%d]-(n:LegalEntity)
		WHERE n.id <> $origin
		  AND ALL(r IN relationships(path) WHERE
		      (r.valid_from IS NULL OR ($as_of IS NULL AND r.valid_to IS NULL)
		       OR ($as_of IS NOT NULL AND r.valid_from <= $as_of
		           AND (r.valid_to IS NULL OR $as_of <= r.valid_to))))
		RETURN n.id AS id, min(length(path)) AS depth
		ORDER BY depth ASC, id ASC
	`, relPattern, maxHops)

	params := map[string]any{"origin": originID, "as_of": nil}
	if asOf != nil {
		params["as_of"] = *asOf
	}

	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("traversal from %q failed: %w", originID, err)
	}

	records := result.([]*db.Record)
	visits := make([]Visit, 0, len(records))
	for _, record := range records {
		id, _ := record.Get("id")
		depth, _ := record.Get("depth")
		idStr, ok := id.(string)
		if !ok {
			continue
		}
		d, _ := depth.(int64)
		visits = append(visits, Visit{EntityID: idStr, Depth: int(d)})
	}
	return visits, nil
}

// Communities implements Store.
func (s *Neo4jStore) Communities(ctx context.Context) ([]*types.Entity, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:LegalEntity {kind: 'community'})
			RETURN c
			ORDER BY c.id ASC
		`, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list communities: %w", err)
	}

	records := result.([]*db.Record)
	communities := make([]*types.Entity, 0, len(records))
	for _, record := range records {
		value, found := record.Get("c")
		if !found {
			continue
		}
		node, ok := value.(dbtype.Node)
		if !ok {
			continue
		}
		communities = append(communities, entityFromNode(node))
	}
	return communities, nil
}

// CommunityMembers implements Store.
func (s *Neo4jStore) CommunityMembers(ctx context.Context, communityID string) ([]string, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (c:LegalEntity {id: $id})-[:HAS_MEMBER]->(m:LegalEntity)
			RETURN m.id AS id
			ORDER BY coalesce(m.centrality, 0.0) DESC, id ASC
		`, map[string]any{"id": communityID})
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get members of %q: %w", communityID, err)
	}

	records := result.([]*db.Record)
	ids := make([]string, 0, len(records))
	for _, record := range records {
		if id, found := record.Get("id"); found {
			if idStr, ok := id.(string); ok {
				ids = append(ids, idStr)
			}
		}
	}
	return ids, nil
}

// Stats implements Store.
func (s *Neo4jStore) Stats(ctx context.Context) (*Stats, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (n:LegalEntity)
			WITH count(CASE WHEN n.kind <> 'community' THEN 1 END) AS entities,
			     count(CASE WHEN n.kind = 'community' THEN 1 END) AS communities
			MATCH ()-[r]->() WHERE type(r) <> 'HAS_MEMBER'
			RETURN entities, communities, count(r) AS edges
		`, nil)
		if err != nil {
			return nil, err
		}
		return res.Single(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read graph stats: %w", err)
	}

	record := result.(*db.Record)
	stats := &Stats{}
	if v, ok := record.Get("entities"); ok {
		if n, ok := v.(int64); ok {
			stats.Entities = int(n)
		}
	}
	if v, ok := record.Get("communities"); ok {
		if n, ok := v.(int64); ok {
			stats.Communities = int(n)
		}
	}
	if v, ok := record.Get("edges"); ok {
		if n, ok := v.(int64); ok {
			stats.Edges = int(n)
		}
	}
	return stats, nil
}

// Close implements Store.
func (s *Neo4jStore) Close() error {
	return s.client.Close(context.Background())
}

// Edges implements Mutator.
func (s *Neo4jStore) Edges(ctx context.Context) ([]*types.Edge, error) {
	session := s.session(ctx)
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (a:LegalEntity)-[r]->(b:LegalEntity)
			WHERE type(r) <> 'HAS_MEMBER'
			RETURN r.id AS id, type(r) AS type, a.id AS source, b.id AS target
		`, nil)
		if err != nil {
			return nil, err
		}
		return res.Collect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list edges: %w", err)
	}

	records := result.([]*db.Record)
	edges := make([]*types.Edge, 0, len(records))
	for _, record := range records {
		edge := &types.Edge{}
		if v, ok := record.Get("id"); ok {
			edge.ID, _ = v.(string)
		}
		if v, ok := record.Get("type"); ok {
			if t, ok := v.(string); ok {
				edge.Type = types.EdgeType(t)
			}
		}
		if v, ok := record.Get("source"); ok {
			edge.SourceID, _ = v.(string)
		}
		if v, ok := record.Get("target"); ok {
			edge.TargetID, _ = v.(string)
		}
		edges = append(edges, edge)
	}
	return edges, nil
}

// ReplaceCommunities implements Mutator in one write transaction.
func (s *Neo4jStore) ReplaceCommunities(ctx context.Context, communities []*types.Entity, membership map[string]string, centrality map[string]float64) error {
	session := s.session(ctx)
	defer session.Close(ctx)

	communityRows := make([]map[string]any, 0, len(communities))
	for _, c := range communities {
		communityRows = append(communityRows, map[string]any{
			"id":           c.ID,
			"title":        c.Title,
			"summary":      c.Summary,
			"member_count": c.MemberCount,
			"built_at":     c.BuiltAt,
		})
	}
	memberRows := make([]map[string]any, 0, len(membership))
	for memberID, communityID := range membership {
		memberRows = append(memberRows, map[string]any{
			"member":     memberID,
			"community":  communityID,
			"centrality": centrality[memberID],
		})
	}

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, `
			MATCH (c:LegalEntity {kind: 'community'})
			DETACH DELETE c
		`, nil); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			UNWIND $rows AS row
			CREATE (c:LegalEntity {id: row.id, kind: 'community', title: row.title,
			                       summary: row.summary, member_count: row.member_count,
			                       built_at: row.built_at})
		`, map[string]any{"rows": communityRows}); err != nil {
			return nil, err
		}
		if _, err := tx.Run(ctx, `
			UNWIND $rows AS row
			MATCH (c:LegalEntity {id: row.community}), (m:LegalEntity {id: row.member})
			SET m.community_id = row.community, m.centrality = row.centrality
			CREATE (c)-[:HAS_MEMBER]->(m)
		`, map[string]any{"rows": memberRows}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace community layer: %w", err)
	}
	return nil
}

func relationshipPattern(edgeTypes []types.EdgeType) string {
	if len(edgeTypes) == 0 {
		return string(types.CitesEdge)
	}
	parts := make([]string, len(edgeTypes))
	for i, t := range edgeTypes {
		parts[i] = string(t)
	}
	return strings.Join(parts, "|")
}

func entityFromNode(node dbtype.Node) *types.Entity {
	props := node.Props
	e := &types.Entity{
		ID:             stringProp(props, "id"),
		Kind:           types.EntityKind(stringProp(props, "kind")),
		Title:          stringProp(props, "title"),
		Snippet:        stringProp(props, "snippet"),
		Number:         stringProp(props, "number"),
		Text:           stringProp(props, "text"),
		InstrumentID:   stringProp(props, "instrument_id"),
		InstrumentKind: stringProp(props, "instrument_kind"),
		Jurisdiction:   stringProp(props, "jurisdiction"),
		CaseNumber:     stringProp(props, "case_number"),
		CourtID:        stringProp(props, "court_id"),
		Summary:        stringProp(props, "summary"),
		CommunityID:    stringProp(props, "community_id"),
	}
	if v, ok := props["enactment_year"].(int64); ok {
		e.EnactmentYear = int(v)
	}
	if v, ok := props["member_count"].(int64); ok {
		e.MemberCount = int(v)
	}
	if v, ok := props["centrality"].(float64); ok {
		e.Centrality = v
	}
	if v, ok := props["decided"].(time.Time); ok {
		e.Decided = v
	}
	if v, ok := props["built_at"].(time.Time); ok {
		e.BuiltAt = v
	}
	if v, ok := props["embedding"].([]any); ok {
		e.Embedding = toFloat32s(v)
	}
	if v, ok := props["interprets"].([]any); ok {
		for _, item := range v {
			if s, ok := item.(string); ok {
				e.Interprets = append(e.Interprets, s)
			}
		}
	}
	return e
}

func stringProp(props map[string]any, key string) string {
	if v, ok := props[key].(string); ok {
		return v
	}
	return ""
}

func toFloat32s(values []any) []float32 {
	out := make([]float32, 0, len(values))
	for _, v := range values {
		switch n := v.(type) {
		case float64:
			out = append(out, float32(n))
		case float32:
			out = append(out, n)
		case int64:
			out = append(out, float32(n))
		}
	}
	return out
}

func toFloat64s(values []float32) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = float64(v)
	}
	return out
}

var _ Store = (*Neo4jStore)(nil)
var _ Mutator = (*Neo4jStore)(nil)
