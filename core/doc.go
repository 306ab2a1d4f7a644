// Package core provides the foundational domain types and interfaces used by
// SupportMesh. It defines the core abstractions for:
//
//   - Messages (immutable conversation records)
//   - SessionState (the conversation value threaded through the agent pipeline)
//   - Agents (units of role-specific work transforming a SessionState)
//   - MemoryStore (durable, session-scoped log of messages and state snapshots)
//
// The package intentionally keeps implementation concerns (persistence, model
// backends, workflow orchestration, concrete agents) out of scope, exposing
// small interfaces to enable custom backends and extensions. All exported
// identifiers include concise documentation to aid discoverability and
// external consumption.
package core
