package types

import (
	"errors"
	"time"
)

// Validation errors
var (
	ErrEmptyID      = errors.New("id cannot be empty")
	ErrEmptyTitle   = errors.New("title cannot be empty")
	ErrEmptyQuery   = errors.New("query cannot be empty")
	ErrInvalidLimit = errors.New("limit must be positive")
)

// EntityKind discriminates the node variants stored in the legal graph.
type EntityKind string

const (
	// InstrumentKind is a legal text: constitution, code, decree.
	InstrumentKind EntityKind = "instrument"
	// ProvisionKind is an article or clause of an instrument.
	ProvisionKind EntityKind = "provision"
	// JudgmentKind is a court decision interpreting provisions.
	JudgmentKind EntityKind = "judgment"
	// CourtKind is a reference entity for provenance.
	CourtKind EntityKind = "court"
	// GazetteKind is a gazette issue reference entity.
	GazetteKind EntityKind = "gazette"
	// CommunityKind is a derived topic cluster over the citation graph.
	CommunityKind EntityKind = "community"
)

// EdgeType identifies a relationship in the graph.
type EdgeType string

const (
	// CitesEdge links a provision to a provision it cites.
	CitesEdge EdgeType = "CITES"
	// InterpretedByEdge links a provision to a judgment interpreting it.
	InterpretedByEdge EdgeType = "INTERPRETED_BY"
	// AffectedByEdge links a provision to an amendment event record.
	AffectedByEdge EdgeType = "AFFECTED_BY"
	// HasMemberEdge links a community to a member entity.
	HasMemberEdge EdgeType = "HAS_MEMBER"
)

// Entity is a node in the legal knowledge graph. Kind-specific fields are
// populated per the Kind discriminator; everything is immutable once
// persisted and owned by the graph store.
type Entity struct {
	ID      string     `json:"id" yaml:"id"`
	Kind    EntityKind `json:"kind" yaml:"kind"`
	Title   string     `json:"title" yaml:"title"`
	Snippet string     `json:"snippet,omitempty" yaml:"snippet,omitempty"`

	// Provision fields
	Number       string `json:"number,omitempty" yaml:"number,omitempty"`
	Text         string `json:"text,omitempty" yaml:"text,omitempty"`
	InstrumentID string `json:"instrument_id,omitempty" yaml:"instrument_id,omitempty"`

	// Instrument fields
	InstrumentKind string `json:"instrument_kind,omitempty" yaml:"instrument_kind,omitempty"`
	EnactmentYear  int    `json:"enactment_year,omitempty" yaml:"enactment_year,omitempty"`
	Jurisdiction   string `json:"jurisdiction,omitempty" yaml:"jurisdiction,omitempty"`

	// Judgment fields
	CaseNumber string    `json:"case_number,omitempty" yaml:"case_number,omitempty"`
	Decided    time.Time `json:"decided,omitempty" yaml:"decided,omitempty"`
	CourtID    string    `json:"court_id,omitempty" yaml:"court_id,omitempty"`
	Interprets []string  `json:"interprets,omitempty" yaml:"interprets,omitempty"`

	// Community fields
	Summary     string    `json:"summary,omitempty" yaml:"summary,omitempty"`
	MemberCount int       `json:"member_count,omitempty" yaml:"member_count,omitempty"`
	BuiltAt     time.Time `json:"built_at,omitempty" yaml:"built_at,omitempty"`

	// Common derived fields
	Embedding   []float32 `json:"embedding,omitempty" yaml:"embedding,omitempty"`
	Centrality  float64   `json:"centrality,omitempty" yaml:"centrality,omitempty"`
	CommunityID string    `json:"community_id,omitempty" yaml:"community_id,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// Validate checks required fields.
func (e *Entity) Validate() error {
	if e.ID == "" {
		return ErrEmptyID
	}
	if e.Title == "" {
		return ErrEmptyTitle
	}
	return nil
}

// DisplayText returns the best human-readable text for the entity,
// preferring the snippet, then the full text, then the title.
func (e *Entity) DisplayText() string {
	if e.Snippet != "" {
		return e.Snippet
	}
	if e.Text != "" {
		return e.Text
	}
	if e.Summary != "" {
		return e.Summary
	}
	return e.Title
}

// Edge is a typed relationship between two entities. Edges carry the
// bi-temporal validity window of the fact they assert; a nil ValidTo means
// the fact is still in force.
type Edge struct {
	ID       string         `json:"id" yaml:"id"`
	Type     EdgeType       `json:"type" yaml:"type"`
	SourceID string         `json:"source_id" yaml:"source_id"`
	TargetID string         `json:"target_id" yaml:"target_id"`
	Event    *Event         `json:"event,omitempty" yaml:"event,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// ValidAt reports whether the edge's asserted fact was legally in force at
// the given instant. Edges with no event record are treated as always valid.
func (e *Edge) ValidAt(at time.Time) bool {
	if e.Event == nil {
		return true
	}
	return e.Event.ValidAt(at)
}

// EventKind classifies a bi-temporal change record.
type EventKind string

const (
	// AmendmentEvent records a textual amendment to a provision.
	AmendmentEvent EventKind = "amendment"
	// RepealEvent records a repeal.
	RepealEvent EventKind = "repeal"
	// EnactmentEvent records the original entry into force.
	EnactmentEvent EventKind = "enactment"
)

// Event is a bi-temporal change record: valid time is when the change was
// legally effective, transaction time is when the system learned of it.
type Event struct {
	Kind         EventKind  `json:"kind" yaml:"kind"`
	ValidFrom    time.Time  `json:"valid_from" yaml:"valid_from"`
	ValidTo      *time.Time `json:"valid_to,omitempty" yaml:"valid_to,omitempty"`
	RecordedFrom time.Time  `json:"recorded_from" yaml:"recorded_from"`
	RecordedTo   *time.Time `json:"recorded_to,omitempty" yaml:"recorded_to,omitempty"`
	GazetteID    string     `json:"gazette_id,omitempty" yaml:"gazette_id,omitempty"`
}

// Validate enforces valid_from <= valid_to.
func (ev *Event) Validate() error {
	if ev.ValidTo != nil && ev.ValidTo.Before(ev.ValidFrom) {
		return errors.New("event valid_to precedes valid_from")
	}
	return nil
}

// ValidAt reports whether the event's validity window covers the instant.
func (ev *Event) ValidAt(at time.Time) bool {
	if at.Before(ev.ValidFrom) {
		return false
	}
	if ev.ValidTo != nil && at.After(*ev.ValidTo) {
		return false
	}
	return true
}
