// Package orchestrator runs the retrieve-fuse-compose pipeline for one
// request and streams its lifecycle as events.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jurisgraph/jurisgraph/pkg/compose"
	"github.com/jurisgraph/jurisgraph/pkg/config"
	"github.com/jurisgraph/jurisgraph/pkg/graph"
	"github.com/jurisgraph/jurisgraph/pkg/retrieval"
	"github.com/jurisgraph/jurisgraph/pkg/telemetry"
	"github.com/jurisgraph/jurisgraph/pkg/types"
)

// Orchestrator owns the agents, the composer and the per-request state
// machine. It is safe for concurrent use; all request state lives on the
// stack of Handle's goroutine.
type Orchestrator struct {
	store    graph.Store
	agents   map[string]retrieval.Agent
	composer compose.Client
	recorder telemetry.Recorder
	cfg      config.RetrievalConfig
	logger   *slog.Logger
}

// New creates an orchestrator over the given agents. The agents slice must
// contain the local, global and drift agents.
func New(store graph.Store, agents []retrieval.Agent, composer compose.Client, recorder telemetry.Recorder, cfg config.RetrievalConfig, logger *slog.Logger) *Orchestrator {
	byName := make(map[string]retrieval.Agent, len(agents))
	for _, a := range agents {
		byName[a.Name()] = a
	}
	if recorder == nil {
		recorder = telemetry.NopRecorder{}
	}
	return &Orchestrator{
		store:    store,
		agents:   byName,
		composer: composer,
		recorder: recorder,
		cfg:      cfg,
		logger:   logger,
	}
}

// Handle runs one request and returns its event stream. The channel always
// carries exactly one terminal event (complete or error) and is closed after
// it; the caller must drain the channel. Cancelling ctx aborts the request
// and produces an error terminal.
func (o *Orchestrator) Handle(ctx context.Context, req types.Request) <-chan types.StreamEvent {
	events := make(chan types.StreamEvent, 16)
	go func() {
		defer close(events)
		o.run(ctx, req, events)
	}()
	return events
}

// run drives the request state machine. It is the only writer to events and
// returns right after emitting the single terminal event.
func (o *Orchestrator) run(ctx context.Context, req types.Request, events chan<- types.StreamEvent) {
	started := time.Now()
	emit := func(e types.StreamEvent) {
		select {
		case events <- e:
		case <-ctx.Done():
		}
	}
	// Terminal events are delivered even after cancellation: the stream
	// contract is exactly one terminal event. The buffered channel makes
	// the fallback send succeed when the reader has gone away.
	terminal := func(e types.StreamEvent) {
		select {
		case events <- e:
		case <-ctx.Done():
			select {
			case events <- e:
			default:
			}
		}
	}
	fail := func(kind, msg string, citations []types.Citation) {
		terminal(types.StreamEvent{
			Kind:  types.ErrorEvent,
			Stage: types.StageFailed,
			Error: &types.ErrorInfo{Kind: kind, Message: msg, Citations: citations},
		})
		o.recorder.Record(telemetry.RequestRecord{
			Query:         req.Query,
			Strategy:      string(req.Strategy),
			Outcome:       "error",
			ErrorKind:     kind,
			ElapsedMillis: time.Since(started).Milliseconds(),
		})
	}

	emit(types.StreamEvent{Kind: types.ProgressEvent, Stage: types.StageInitializing})

	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		fail(types.ErrKindBadRequest, err.Error(), nil)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, o.cfg.RequestBudget)
	defer cancel()

	emit(types.StreamEvent{Kind: types.ProgressEvent, Stage: types.StageRetrieving})

	lists, diagnostics, err := o.retrieve(ctx, req)
	if err != nil {
		kind := types.ErrKindInternal
		if errors.Is(err, types.ErrConfiguration) {
			kind = types.ErrKindConfiguration
		}
		fail(kind, err.Error(), nil)
		return
	}

	fused := retrieval.Merge(lists, o.cfg.RRFConstant, o.cfg.ContextResults)
	if err := retrieval.AttachCitations(ctx, o.store, fused); err != nil {
		fail(types.ErrKindInternal, err.Error(), nil)
		return
	}

	emit(types.StreamEvent{Kind: types.ProgressEvent, Stage: types.StageComposing})

	onToken := func(token string) {
		emit(types.StreamEvent{Kind: types.TokenEvent, Token: token})
	}
	comp, err := o.composer.Compose(ctx, req.Query, fused, onToken)
	if err != nil {
		// Evidence was already gathered, so the failure travels with
		// its citations.
		fail(types.ErrKindComposition, (&types.CompositionError{Err: err}).Error(), citationsOf(fused))
		return
	}

	answer := &types.Answer{
		Text:        comp.Answer,
		Citations:   citedBy(fused, comp.EvidenceIDs),
		Confidence:  comp.Confidence,
		Strategy:    req.Strategy,
		Diagnostics: diagnostics,
	}
	var notes []string
	if n := degradedCount(diagnostics); n > 0 {
		notes = append(notes, fmt.Sprintf("%d of %d retrieval agents degraded; evidence may be incomplete", n, len(diagnostics)))
	}
	if len(fused) == 0 {
		notes = append(notes, "no evidence found; the answer is low confidence")
	}
	answer.Note = strings.Join(notes, "; ")

	terminal(types.StreamEvent{Kind: types.CompleteEvent, Stage: types.StageComplete, Result: answer})
	o.recorder.Record(telemetry.RequestRecord{
		Query:          req.Query,
		Strategy:       string(req.Strategy),
		Outcome:        "complete",
		FusedResults:   len(fused),
		DegradedAgents: degradedCount(diagnostics),
		Confidence:     comp.Confidence,
		ElapsedMillis:  time.Since(started).Milliseconds(),
	})
}

// retrieve fans the request out to the strategy's agents. Each agent runs
// under its own sub-budget; one that fails or times out is reported degraded
// with an empty list rather than failing the request. Only a total wipeout,
// every agent degraded, is an error.
func (o *Orchestrator) retrieve(ctx context.Context, req types.Request) ([][]types.RetrievalHit, []types.AgentDiagnostic, error) {
	names := agentNames(req.Strategy)
	agentBudget := time.Duration(float64(o.cfg.RequestBudget) * o.cfg.AgentBudgetFraction)

	lists := make([][]types.RetrievalHit, len(names))
	diagnostics := make([]types.AgentDiagnostic, len(names))
	failures := make([]error, len(names))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		agent, ok := o.agents[name]
		if !ok {
			return nil, nil, fmt.Errorf("%w: no %s agent registered", types.ErrConfiguration, name)
		}
		i, name := i, name
		g.Go(func() error {
			actx, cancel := context.WithTimeout(gctx, agentBudget)
			defer cancel()

			start := time.Now()
			hits, err := agent.Retrieve(actx, req.Query, req.AsOf, req.MaxResults)
			diag := types.AgentDiagnostic{Agent: name, Hits: len(hits), Elapsed: time.Since(start)}
			if err != nil {
				diag.Degraded = true
				diag.Hits = 0
				hits = nil
				if errors.Is(err, context.DeadlineExceeded) {
					diag.Reason = (&types.AgentTimeoutError{Agent: name, Budget: agentBudget}).Error()
				} else {
					diag.Reason = err.Error()
				}
				o.logger.Warn("retrieval agent degraded", "agent", name, "reason", diag.Reason)
			}

			mu.Lock()
			lists[i] = hits
			diagnostics[i] = diag
			failures[i] = err
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	if degradedCount(diagnostics) == len(diagnostics) {
		// Every agent down on the shared embedding dependency points at
		// the endpoint, not the request.
		if allEmbeddingFailures(failures) {
			return nil, nil, fmt.Errorf("%w: embedding service unavailable for every agent", types.ErrConfiguration)
		}
		return nil, nil, fmt.Errorf("all retrieval agents failed: %s", diagnostics[0].Reason)
	}
	return lists, diagnostics, nil
}

func allEmbeddingFailures(failures []error) bool {
	for _, err := range failures {
		if err == nil || !errors.Is(err, types.ErrEmbeddingUnavailable) {
			return false
		}
	}
	return len(failures) > 0
}

// agentNames maps a strategy to the agents it runs.
func agentNames(s types.Strategy) []string {
	switch s {
	case types.StrategyLocal:
		return []string{retrieval.AgentLocal}
	case types.StrategyGlobal:
		return []string{retrieval.AgentGlobal}
	case types.StrategyDrift:
		return []string{retrieval.AgentDrift}
	default:
		return []string{retrieval.AgentLocal, retrieval.AgentGlobal, retrieval.AgentDrift}
	}
}

func citationsOf(fused []types.FusedResult) []types.Citation {
	citations := make([]types.Citation, len(fused))
	for i, f := range fused {
		citations[i] = f.Citation
	}
	return citations
}

// citedBy keeps only the citations the composer actually used, preserving
// fused order. An empty or unknown id set falls back to all citations.
func citedBy(fused []types.FusedResult, ids []string) []types.Citation {
	if len(ids) == 0 {
		return citationsOf(fused)
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	var citations []types.Citation
	for _, f := range fused {
		if wanted[f.EntityID] {
			citations = append(citations, f.Citation)
		}
	}
	if len(citations) == 0 {
		return citationsOf(fused)
	}
	return citations
}

func degradedCount(diagnostics []types.AgentDiagnostic) int {
	n := 0
	for _, d := range diagnostics {
		if d.Degraded {
			n++
		}
	}
	return n
}
