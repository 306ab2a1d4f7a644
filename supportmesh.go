// Package supportmesh provides a high-level façade over the workflow engine
// and its services (agents, routing, memory, logging) enabling rapid
// construction of staged support pipelines. Most applications interact with
// this package by:
//  1. Creating a SupportMesh via New() (optionally overriding default in-memory services)
//  2. Handling customer queries with Run or HandleQuery
//  3. Inspecting the returned session state, Summary and Decisions
//
// The façade delegates orchestration to workflow.Engine while keeping setup
// and usage ergonomics concise. All defaults are safe for local development
// and testing; production deployments typically supply a real completion
// provider, a durable memory store and a structured logger.
package supportmesh

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/supportmesh/agent"
	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/llm"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/memory"
	"github.com/hupe1980/supportmesh/router"
	"github.com/hupe1980/supportmesh/tool"
	"github.com/hupe1980/supportmesh/workflow"
)

// Options configures the SupportMesh instance.
type Options struct {
	// Completer produces agent replies. Defaults to the deterministic mock
	// completer, which is safe for local development and testing.
	Completer llm.Completer

	// Stages overrides the default receptionist/analyst/expert pipeline.
	// When set the caller owns agent construction and Completer, Knowledge
	// and Search are not consulted.
	Stages []core.Agent

	// Router decides stage transitions (defaults to support-desk rules).
	Router *router.Router

	// Memory persists history and snapshots (defaults to in-memory).
	Memory core.MemoryStore

	// Knowledge serves reference articles to the resolution stage. Nil
	// builds the seeded default knowledge base.
	Knowledge *tool.KnowledgeBase

	// Search performs web lookups for the resolution stage. Nil disables
	// the lookup.
	Search tool.WebSearch

	// Callbacks hook the run lifecycle.
	Callbacks *workflow.CallbackManager

	// MaxSteps caps agent invocations per run. Zero selects the workflow
	// default.
	MaxSteps int

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

// SupportMesh is the high-level façade aggregating the workflow engine and
// its services.
type SupportMesh struct {
	opts   Options
	engine *workflow.Engine
	memory core.MemoryStore
	router *router.Router
}

// New creates a new SupportMesh instance with optional overrides. Any unset
// service is initialized with an in-memory implementation, and the default
// agent trio is built over the configured completer.
func New(optFns ...func(o *Options)) (*SupportMesh, error) {
	opts := Options{
		Completer: llm.NewMockCompleter(),
		Router:    router.New(),
		Memory:    memory.NewInMemoryStore(),
		Logger:    logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	stages := opts.Stages
	if len(stages) == 0 {
		knowledge := opts.Knowledge
		if knowledge == nil {
			kb, err := tool.NewKnowledgeBase()
			if err != nil {
				return nil, fmt.Errorf("build default knowledge base: %w", err)
			}
			knowledge = kb
		}

		stages = []core.Agent{
			agent.NewReceptionist(opts.Completer, func(o *agent.Options) {
				o.Logger = opts.Logger
			}),
			agent.NewAnalyst(opts.Completer, func(o *agent.Options) {
				o.Logger = opts.Logger
			}),
			agent.NewExpert(opts.Completer, func(o *agent.ExpertOptions) {
				o.Logger = opts.Logger
				o.Knowledge = knowledge
				o.Search = opts.Search
			}),
		}
	}

	engine, err := workflow.New(stages, func(o *workflow.Options) {
		o.Router = opts.Router
		o.Memory = opts.Memory
		o.Logger = opts.Logger
		o.Callbacks = opts.Callbacks
		o.MaxSteps = opts.MaxSteps
	})
	if err != nil {
		return nil, err
	}

	return &SupportMesh{
		opts:   opts,
		engine: engine,
		memory: opts.Memory,
		router: opts.Router,
	}, nil
}

// Run executes the pipeline for one customer query within the given session.
// It never returns an error; a failing stage is recorded in the returned
// state's error metadata.
func (m *SupportMesh) Run(ctx context.Context, sessionID, query string) *core.SessionState {
	return m.engine.Run(ctx, sessionID, query)
}

// HandleQuery runs one customer query in a fresh session and returns the
// final state. The generated session ID is available on the state.
func (m *SupportMesh) HandleQuery(ctx context.Context, query string) *core.SessionState {
	return m.Run(ctx, "session-"+core.NewID(), query)
}

// Summary returns the aggregate memory view for a session, or (nil, nil)
// when the session has never been persisted.
func (m *SupportMesh) Summary(ctx context.Context, sessionID string) (*core.SessionSummary, error) {
	return m.memory.Summarize(ctx, sessionID)
}

// History returns the persisted entries for a session, newest first,
// narrowed by filter.
func (m *SupportMesh) History(ctx context.Context, sessionID string, filter core.QueryFilter) ([]core.MemoryEntry, error) {
	return m.memory.Query(ctx, sessionID, filter)
}

// Purge removes persisted entries older than age and reports how many
// entries were removed.
func (m *SupportMesh) Purge(ctx context.Context, age time.Duration) (int64, error) {
	return m.memory.PurgeOlderThan(ctx, age)
}

// Decisions returns the routing decision log, oldest first.
func (m *SupportMesh) Decisions() []router.Record {
	return m.router.History()
}
