// Package memory contains concrete MemoryStore implementations. The store
// interface and entry types reside in the core package. Import
// github.com/hupe1980/supportmesh/core and depend on core.MemoryStore in
// your code; select an implementation (in-memory for tests and demos, the
// SQLite store for durable deployments) at wiring time.
//
// Rationale: keeps domain contracts centralized while allowing pluggable
// backends (embedded databases, remote stores, etc.) to be added without
// introducing dependency cycles.
package memory
