package core

import "context"

// Agent defines the contract every specialized worker in the pipeline
// satisfies.
//
// Agents are the processing units of SupportMesh. Each one wraps a
// role-specific instruction and a resilient model invocation, receives the
// shared SessionState, and returns a new version of it.
//
// Implementations must:
//   - Treat the received state as read-only and return a Clone-derived value
//     (copy-on-write; no references retained across steps)
//   - Limit side effects to appending history messages and setting Analysis,
//     Solution, HandoffReason and Metadata entries
//   - Respect context cancellation on every model call
type Agent interface {
	// Role returns the pipeline role this agent fills.
	Role() AgentRole

	// Name returns a human-readable agent name for logs and messages.
	Name() string

	// Process transforms the state. Errors escaping Process are model
	// invocation failures that survived retry and fallback handling; the
	// workflow engine catches them and records them on the state.
	Process(ctx context.Context, state *SessionState) (*SessionState, error)

	// ShouldHandoff reports the agent's own routing preference once its work
	// is done: whether to hand off, the target role and a reason. The
	// workflow engine consults it when the routing engine has no stronger
	// signal.
	ShouldHandoff(state *SessionState) (bool, AgentRole, string)
}
