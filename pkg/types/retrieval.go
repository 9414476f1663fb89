package types

import "time"

// Strategy selects which retrieval agents a request runs.
type Strategy string

const (
	StrategyLocal  Strategy = "local"
	StrategyGlobal Strategy = "global"
	StrategyDrift  Strategy = "drift"
	// StrategyHybrid runs all three agents concurrently and fuses their
	// ranked lists. This is the default.
	StrategyHybrid Strategy = "hybrid"
)

// Valid reports whether s names a known strategy.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyLocal, StrategyGlobal, StrategyDrift, StrategyHybrid:
		return true
	}
	return false
}

// RetrievalHit is one scored piece of evidence produced by an agent. Hits
// are request-scoped: created by an agent, consumed by the merger, and
// discarded once the response is sent.
type RetrievalHit struct {
	EntityID    string  `json:"entity_id"`
	Snippet     string  `json:"snippet"`
	Score       float64 `json:"score"`
	Agent       string  `json:"agent"`
	Rank        int     `json:"rank"` // 1-based position in the agent's list
	CommunityID string  `json:"community_id,omitempty"`
}

// AgentRank records one agent's contribution to a fused result.
type AgentRank struct {
	Agent string `json:"agent"`
	Rank  int    `json:"rank"`
}

// Citation is the provenance metadata attached to fused evidence.
type Citation struct {
	EntityID string     `json:"entity_id"`
	Kind     EntityKind `json:"kind"`
	Title    string     `json:"title"`
	Number   string     `json:"number,omitempty"`
	Snippet  string     `json:"snippet,omitempty"`
}

// FusedResult is one entry of the merged evidence list. Request-scoped,
// like RetrievalHit.
type FusedResult struct {
	EntityID string      `json:"entity_id"`
	Score    float64     `json:"score"`
	Agents   []AgentRank `json:"agents"`
	Citation Citation    `json:"citation"`
}

// Request describes one retrieval question posed to the orchestrator.
type Request struct {
	Query      string     `json:"query"`
	Strategy   Strategy   `json:"strategy"`
	MaxResults int        `json:"max_results"`
	AsOf       *time.Time `json:"as_of,omitempty"`
}

// WithDefaults returns a copy with the default strategy and limit applied.
func (r Request) WithDefaults() Request {
	out := r
	if out.Strategy == "" {
		out.Strategy = StrategyHybrid
	}
	if out.MaxResults <= 0 {
		out.MaxResults = 10
	}
	return out
}

// Validate checks the request is answerable.
func (r Request) Validate() error {
	if r.Query == "" {
		return ErrEmptyQuery
	}
	if !r.Strategy.Valid() {
		return ErrUnknownStrategy
	}
	if r.MaxResults < 0 {
		return ErrInvalidLimit
	}
	return nil
}
