// Package workflow implements the staged orchestration engine that drives a
// session through an ordered list of agents.
//
// The engine models the pipeline as a sequence of stages (canonically intake,
// analysis and resolution) and moves one shared core.SessionState through
// them. Transitions are computed after every stage by the routing engine and
// by the agent's own handoff recommendation; the last stage is always
// terminal.
//
// # Per-Step Protocol
//
// Each step follows the same sequence:
//
//  1. Persist the not-yet-stored history messages and a state snapshot,
//     tagged with the incoming agent.
//  2. Invoke the agent's Process on the state.
//  3. Record the agent as CurrentAgent and persist again.
//  4. Decide the next stage: the terminal stage ends the run, a produced
//     Solution ends the run, otherwise the router's decision applies and a
//     "continue" consults the agent's ShouldHandoff before advancing.
//
// # Error Handling
//
// Run never returns an error. A failing stage ends the run with the error
// text recorded in the state's metadata; the partial state is returned so
// callers always receive a well-formed result. Memory store failures are
// logged and ignored: persistence is best-effort telemetry, never a reason
// to abort a run.
//
// # Concurrency
//
// One run executes on the caller's goroutine with no internal parallelism.
// Independent sessions may run concurrently; they share nothing but the
// memory store. The run context is propagated into every model call and
// storage operation.
//
// # Callbacks
//
// The callback system hooks the run lifecycle (before/after each stage, on
// handoff, on error) for logging, metrics or validation without touching the
// engine itself. A before or after stage callback returning an error ends
// the run through the regular error capture path.
package workflow
