package workflow

import (
	"context"
	"fmt"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/memory"
	"github.com/hupe1980/supportmesh/router"
)

// DefaultMaxSteps bounds the number of agent invocations in one run. The
// generic stage list makes routing cycles possible; the guard turns them
// into a recorded error instead of an endless loop.
const DefaultMaxSteps = 10

// Options configures an Engine.
type Options struct {
	// Router decides stage transitions. Defaults to a router with
	// support-desk rules.
	Router *router.Router

	// Memory persists messages and state snapshots. Defaults to the
	// in-memory store.
	Memory core.MemoryStore

	// Logger receives engine diagnostics.
	Logger logging.Logger

	// Callbacks hook the run lifecycle.
	Callbacks *CallbackManager

	// MaxSteps caps agent invocations per run. Zero or negative selects
	// DefaultMaxSteps.
	MaxSteps int
}

// Engine is the workflow state machine. It owns the session state for the
// duration of a run, invokes one stage at a time and persists the state
// around every invocation.
//
// An Engine is immutable after construction and safe for concurrent runs of
// different sessions. Concurrent runs of the same session are undefined;
// callers serialize those.
type Engine struct {
	stages    []core.Agent
	index     map[core.AgentRole]int
	router    *router.Router
	memory    core.MemoryStore
	logger    logging.Logger
	callbacks *CallbackManager
	maxSteps  int
}

// New creates an Engine over the ordered pipeline stages. The stage order is
// the default progression; the router and the agents' own handoff
// recommendations may jump between stages. Stage roles must be unique.
func New(stages []core.Agent, optFns ...func(o *Options)) (*Engine, error) {
	if len(stages) == 0 {
		return nil, fmt.Errorf("workflow requires at least one stage")
	}

	opts := Options{
		Router:   router.New(),
		Memory:   memory.NewInMemoryStore(),
		Logger:   logging.NoOpLogger{},
		MaxSteps: DefaultMaxSteps,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	if opts.MaxSteps <= 0 {
		opts.MaxSteps = DefaultMaxSteps
	}

	index := make(map[core.AgentRole]int, len(stages))
	for i, stage := range stages {
		if _, ok := index[stage.Role()]; ok {
			return nil, fmt.Errorf("duplicate stage role %q", stage.Role())
		}
		index[stage.Role()] = i
	}

	return &Engine{
		stages:    stages,
		index:     index,
		router:    opts.Router,
		memory:    opts.Memory,
		logger:    opts.Logger,
		callbacks: opts.Callbacks,
		maxSteps:  opts.MaxSteps,
	}, nil
}

// Run executes the pipeline for one query, starting at the first stage.
//
// Run never returns an error: a failing stage ends the run with the failure
// recorded in the state's error metadata, and the partial state is returned.
// The presence of that metadata entry is the caller's sole failure signal.
func (e *Engine) Run(ctx context.Context, sessionID, query string) *core.SessionState {
	state := core.NewSessionState(sessionID, query)

	e.logger.Info("workflow run started", "session_id", sessionID, "stages", len(e.stages))

	state = e.run(ctx, state)

	if errText, failed := state.Err(); failed {
		e.logger.Warn("workflow run finished with error", "session_id", sessionID, "error", errText)
	} else {
		e.logger.Info("workflow run finished",
			"session_id", sessionID,
			"messages", len(state.History),
			"resolved", state.Solution != nil,
		)
	}

	return state
}

func (e *Engine) run(ctx context.Context, state *core.SessionState) *core.SessionState {
	idx := 0
	persisted := 0

	for step := 0; ; step++ {
		if step >= e.maxSteps {
			state.SetError(fmt.Errorf("run aborted after %d steps", e.maxSteps))
			return state
		}

		stage := e.stages[idx]
		role := stage.Role()

		persisted = e.persist(ctx, state, role, persisted)
		e.snapshot(ctx, state, role)

		if err := e.stageCallback(ctx, CallbackBeforeStage, state, role, step); err != nil {
			state.SetError(err)
			return state
		}

		e.logger.Debug("stage processing", "session_id", state.SessionID, "agent", string(role), "step", step)

		next, err := stage.Process(ctx, state)
		if err != nil {
			e.logger.Error("stage failed", "session_id", state.SessionID, "agent", string(role), "error", err)
			e.notifyError(ctx, state, role, step, err)
			state.SetError(err)
			return state
		}

		state = next
		state.CurrentAgent = role

		persisted = e.persist(ctx, state, role, persisted)
		e.snapshot(ctx, state, role)

		if err := e.stageCallback(ctx, CallbackAfterStage, state, role, step); err != nil {
			state.SetError(err)
			return state
		}

		if idx == len(e.stages)-1 {
			return state
		}

		if state.Solution != nil {
			e.logger.Debug("solution produced, ending run early", "session_id", state.SessionID, "agent", string(role))
			return state
		}

		decision := e.router.Decide(state, role)

		switch decision.Type {
		case router.DecisionEnd:
			e.logger.Info("routing ended run", "session_id", state.SessionID, "reason", decision.Reason)
			return state

		case router.DecisionEscalate, router.DecisionHandoff:
			jump, ok := e.index[decision.Target]
			if !ok {
				e.logger.Warn("routing target not in pipeline, advancing",
					"session_id", state.SessionID, "target", string(decision.Target))
				idx++
				continue
			}
			if decision.Target == role {
				idx++
				continue
			}
			e.handoff(ctx, state, role, decision.Target, decision.Reason, &decision, step)
			idx = jump

		case router.DecisionContinue:
			if handoff, target, reason := stage.ShouldHandoff(state); handoff {
				if jump, ok := e.index[target]; ok && target != role {
					e.handoff(ctx, state, role, target, reason, nil, step)
					idx = jump
					continue
				}
			}
			idx++
		}
	}
}

// persist appends the history messages written since the last persist call,
// tagged with the given role. Failures are logged and swallowed; memory is
// best-effort telemetry.
func (e *Engine) persist(ctx context.Context, state *core.SessionState, role core.AgentRole, from int) int {
	for _, msg := range state.History[from:] {
		entry := core.MemoryEntry{
			SessionID:   state.SessionID,
			AgentRole:   role,
			MessageType: msg.Type,
			Content:     msg.Content,
			Metadata:    msg.Metadata,
			Timestamp:   msg.Timestamp,
			Importance:  importanceFor(msg.Type),
		}

		if err := e.memory.Append(ctx, entry); err != nil {
			e.logger.Warn("memory append failed", "session_id", state.SessionID, "error", err)
		}
	}

	return len(state.History)
}

func (e *Engine) snapshot(ctx context.Context, state *core.SessionState, role core.AgentRole) {
	if err := e.memory.SaveSnapshot(ctx, state.SessionID, role, state); err != nil {
		e.logger.Warn("snapshot save failed", "session_id", state.SessionID, "agent", string(role), "error", err)
	}
}

func (e *Engine) handoff(ctx context.Context, state *core.SessionState, from, to core.AgentRole, reason string, decision *router.Decision, step int) {
	state.AddMessage(core.NewHandoffMessage(from, to, reason))
	state.HandoffReason = reason

	e.logger.Info("handoff", "session_id", state.SessionID, "from", string(from), "to", string(to), "reason", reason)

	cbCtx := &CallbackContext{SessionID: state.SessionID, Stage: from, Step: step, State: state, Decision: decision}
	if err := e.callbacks.Execute(ctx, CallbackOnHandoff, cbCtx); err != nil {
		e.logger.Warn("handoff callback failed", "session_id", state.SessionID, "error", err)
	}
}

func (e *Engine) stageCallback(ctx context.Context, callbackType CallbackType, state *core.SessionState, role core.AgentRole, step int) error {
	cbCtx := &CallbackContext{SessionID: state.SessionID, Stage: role, Step: step, State: state}
	return e.callbacks.Execute(ctx, callbackType, cbCtx)
}

func (e *Engine) notifyError(ctx context.Context, state *core.SessionState, role core.AgentRole, step int, stepErr error) {
	cbCtx := &CallbackContext{SessionID: state.SessionID, Stage: role, Step: step, State: state, Err: stepErr}
	if err := e.callbacks.Execute(ctx, CallbackOnError, cbCtx); err != nil {
		e.logger.Warn("error callback failed", "session_id", state.SessionID, "error", err)
	}
}

// importanceFor scores a message type for memory retention. User queries
// matter most, system notifications least.
func importanceFor(msgType core.MessageType) float64 {
	switch msgType {
	case core.MessageTypeUserQuery:
		return 0.8
	case core.MessageTypeHandoff:
		return 0.7
	case core.MessageTypeAgentResponse:
		return 0.6
	default:
		return 0.4
	}
}
