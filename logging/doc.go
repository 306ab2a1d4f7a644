// Package logging provides a minimal logging interface and adapters for
// SupportMesh.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) that the workflow engine, agents and stores use for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - SupportMeshLogger with contextual and domain helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	engine, err := workflow.New(stages, func(o *workflow.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor
// lock-in while supporting structured logging where available.
package logging
