// Package llm defines the provider-agnostic abstractions and concrete
// helpers for interacting with language models inside SupportMesh.
//
// Core goals:
//   - Unify provider chat APIs behind a single synchronous interface
//   - Concentrate resilience (retry, model fallback, circuit breaking) in
//     one wrapper instead of scattering it across agents
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockCompleter)
//
// Providers (e.g. OpenAI, Anthropic) implement the Completer interface from
// this package so higher layers (agents, workflows) remain decoupled from
// vendor SDKs.
package llm
