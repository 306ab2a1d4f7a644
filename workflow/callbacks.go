package workflow

import (
	"context"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/logging"
	"github.com/hupe1980/supportmesh/router"
)

// CallbackType defines the lifecycle points where callbacks execute.
type CallbackType string

const (
	// CallbackBeforeStage is triggered before a stage processes the state.
	// Use for setup, validation or instrumentation.
	CallbackBeforeStage CallbackType = "before_stage"

	// CallbackAfterStage is triggered after a stage processed the state and
	// the result was persisted. Use for metrics or post-processing.
	CallbackAfterStage CallbackType = "after_stage"

	// CallbackOnHandoff is triggered when control transfers to another
	// stage. The callback context carries the routing decision when the
	// transfer came from the router.
	CallbackOnHandoff CallbackType = "on_handoff"

	// CallbackOnError is triggered when a stage fails. The run still ends
	// with the error recorded on the state.
	CallbackOnError CallbackType = "on_error"
)

// CallbackContext carries the execution context passed to each callback.
type CallbackContext struct {
	// SessionID identifies the running session.
	SessionID string

	// Stage is the role of the agent the callback relates to.
	Stage core.AgentRole

	// Step is the zero-based invocation counter within the run.
	Step int

	// State is the session state at the time of the callback. Callbacks
	// must treat it as read-only.
	State *core.SessionState

	// Decision is the routing decision behind a handoff, when there is one.
	Decision *router.Decision

	// Err is the stage failure for error callbacks.
	Err error
}

// Callback is a hook into the run lifecycle.
//
// Implementations run synchronously on the run's goroutine and should be
// fast. A before or after stage callback returning an error ends the run;
// errors from handoff and error callbacks are logged and ignored.
type Callback interface {
	// Type returns the lifecycle point this callback handles.
	Type() CallbackType

	// Execute performs the callback logic.
	Execute(ctx context.Context, cbCtx *CallbackContext) error
}

// FunctionCallback wraps a plain function as a Callback.
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, cbCtx *CallbackContext) error
}

// NewFunctionCallback creates a callback from fn for the given lifecycle
// point.
func NewFunctionCallback(callbackType CallbackType, fn func(ctx context.Context, cbCtx *CallbackContext) error) *FunctionCallback {
	return &FunctionCallback{callbackType: callbackType, fn: fn}
}

// Type implements Callback.
func (c *FunctionCallback) Type() CallbackType { return c.callbackType }

// Execute implements Callback.
func (c *FunctionCallback) Execute(ctx context.Context, cbCtx *CallbackContext) error {
	return c.fn(ctx, cbCtx)
}

// LoggingCallback logs lifecycle events through the logging interface. It is
// the built-in observer for debugging and audit trails.
type LoggingCallback struct {
	callbackType CallbackType
	logger       logging.Logger
}

// NewLoggingCallback creates a logging callback for the given lifecycle
// point.
func NewLoggingCallback(callbackType CallbackType, logger logging.Logger) *LoggingCallback {
	return &LoggingCallback{callbackType: callbackType, logger: logger}
}

// Type implements Callback.
func (c *LoggingCallback) Type() CallbackType { return c.callbackType }

// Execute implements Callback.
func (c *LoggingCallback) Execute(_ context.Context, cbCtx *CallbackContext) error {
	args := []any{"session_id", cbCtx.SessionID, "stage", string(cbCtx.Stage), "step", cbCtx.Step}

	if cbCtx.Decision != nil {
		args = append(args, "decision", string(cbCtx.Decision.Type), "reason", cbCtx.Decision.Reason)
	}

	if cbCtx.Err != nil {
		args = append(args, "error", cbCtx.Err)
	}

	c.logger.Info(string(c.callbackType), args...)

	return nil
}

// CallbackManager holds the registered callbacks and executes them at the
// engine's lifecycle points.
//
// Callbacks for the same type run in registration order; the first error
// stops the remaining ones. Register before starting runs: registration is
// not synchronized against execution.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates an empty manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{callbacks: make(map[CallbackType][]Callback)}
}

// Register adds a callback for its lifecycle point.
func (cm *CallbackManager) Register(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// Execute runs all callbacks registered for the given lifecycle point and
// returns the first error.
func (cm *CallbackManager) Execute(ctx context.Context, callbackType CallbackType, cbCtx *CallbackContext) error {
	for _, callback := range cm.callbacks[callbackType] {
		if err := callback.Execute(ctx, cbCtx); err != nil {
			return err
		}
	}

	return nil
}

// Interface compliance (compile-time assertions)
var (
	_ Callback = (*FunctionCallback)(nil)
	_ Callback = (*LoggingCallback)(nil)
)
