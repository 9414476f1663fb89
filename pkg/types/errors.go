package types

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy. Failures local to one agent (timeouts, embedding outage)
// degrade that agent's contribution; failures in the merger or orchestrator
// are fatal and terminate the stream.
var (
	// ErrConfiguration marks an unreachable or misconfigured upstream
	// service. Fatal, surfaced immediately, never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrEmbeddingUnavailable marks an unreachable embedding endpoint.
	// Degrades a single agent; fatal only when it starves every agent.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrNotFound marks a missing entity.
	ErrNotFound = errors.New("entity not found")

	// ErrNoCommunities marks a graph with no derived community layer.
	ErrNoCommunities = errors.New("graph has no communities")

	// ErrUnknownStrategy marks an unrecognized strategy name.
	ErrUnknownStrategy = errors.New("unknown retrieval strategy")
)

// Error kinds surfaced on terminal error events.
const (
	ErrKindConfiguration = "configuration_error"
	ErrKindComposition   = "composition_failure"
	ErrKindInternal      = "internal_error"
	ErrKindBadRequest    = "bad_request"
)

// AgentTimeoutError records that one agent exceeded its sub-budget. It is
// recovered locally by substituting an empty list and never surfaced as a
// user-facing error.
type AgentTimeoutError struct {
	Agent  string
	Budget time.Duration
}

func (e *AgentTimeoutError) Error() string {
	return fmt.Sprintf("agent %s exceeded budget %s", e.Agent, e.Budget)
}

// CompositionError records a language-model failure after evidence was
// gathered. The evidence travels with the error so citations survive.
type CompositionError struct {
	Err       error
	Citations []Citation
}

func (e *CompositionError) Error() string {
	return fmt.Sprintf("composition failed: %v", e.Err)
}

func (e *CompositionError) Unwrap() error { return e.Err }
