package types

import "time"

// StreamEventKind is the discriminator of events on the answer stream.
type StreamEventKind string

const (
	// ProgressEvent announces a stage transition.
	ProgressEvent StreamEventKind = "progress"
	// TokenEvent carries one chunk of the streamed answer text.
	TokenEvent StreamEventKind = "token"
	// CompleteEvent terminates the stream with a grounded answer.
	CompleteEvent StreamEventKind = "complete"
	// ErrorEvent terminates the stream with a typed failure.
	ErrorEvent StreamEventKind = "error"
)

// Stage names the orchestrator states surfaced in progress events.
type Stage string

const (
	StageInitializing Stage = "initializing"
	StageRetrieving   Stage = "retrieving"
	StageComposing    Stage = "composing"
	StageComplete     Stage = "complete"
	StageFailed       Stage = "failed"
)

// StreamEvent is one event on a request's answer stream. Exactly one of
// complete or error terminates the stream; progress and token events may
// repeat zero or more times before it.
type StreamEvent struct {
	Kind    StreamEventKind `json:"kind"`
	Stage   Stage           `json:"stage,omitempty"`
	Message string          `json:"message,omitempty"`
	Token   string          `json:"token,omitempty"`
	Result  *Answer         `json:"result,omitempty"`
	Error   *ErrorInfo      `json:"error,omitempty"`
}

// Terminal reports whether the event closes the stream.
func (e StreamEvent) Terminal() bool {
	return e.Kind == CompleteEvent || e.Kind == ErrorEvent
}

// AgentDiagnostic describes one agent's contribution to a request.
type AgentDiagnostic struct {
	Agent    string        `json:"agent"`
	Hits     int           `json:"hits"`
	Elapsed  time.Duration `json:"elapsed"`
	Degraded bool          `json:"degraded"`
	Reason   string        `json:"reason,omitempty"`
}

// Answer is the terminal payload of a successful request.
type Answer struct {
	Text        string            `json:"text"`
	Citations   []Citation        `json:"citations"`
	Confidence  float64           `json:"confidence"`
	Strategy    Strategy          `json:"strategy"`
	Diagnostics []AgentDiagnostic `json:"diagnostics"`
	Note        string            `json:"note,omitempty"`
}

// ErrorInfo is the terminal payload of a failed request. Citations gathered
// before the failure are attached so the caller is not left with nothing.
type ErrorInfo struct {
	Kind      string     `json:"kind"`
	Message   string     `json:"message"`
	Citations []Citation `json:"citations,omitempty"`
}
