// Package agent contains the pipeline agent implementations and supporting
// utilities for building support conversations in SupportMesh. The package
// focuses on three concerns:
//
//  1. Shared identity + model plumbing (Base)
//  2. Instruction resolution, static or state-derived (Instruction)
//  3. The concrete support trio (Receptionist, Analyst, Expert)
//
// Design principles:
//   - No hidden global state – the completer, tools and logger are injected
//   - Copy-on-write – agents clone the session state and never mutate the input
//   - Structured output – control fields travel as JSON, never parsed from prose
//   - Tolerant parsing – malformed model output degrades to documented defaults
//
// Execution model:
//   - An agent's Process receives a *core.SessionState and returns a new one
//   - ShouldHandoff reports the agent's routing preference after its work
//   - The workflow engine owns sequencing; agents never invoke each other
//
// The package intentionally keeps routing policy, persistence and model
// specifics in their respective packages to avoid cyclic deps.
package agent
