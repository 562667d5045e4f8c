package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/hupe1980/rpcmesh/core"
)

// CallbackType defines the specific lifecycle points where callbacks can be executed.
//
// Callbacks provide a flexible mechanism for hooking into the engine's
// dispatch pipeline without writing a middleware. Each type represents a
// specific point in the lifecycle of one Handle call:
//   - BeforeHandle: Before the first middleware runs
//   - BeforeMiddleware: Before every middleware invocation, at any nesting depth
//
// The hooks of the engine that starts a call apply to the whole call. A
// nested engine's own BeforeMiddleware hooks additionally run for its
// middleware; its other hooks only fire for calls it starts itself.
//   - OnError: At finalization of a call that completes with an error
//   - AfterHandle: After finalization, right before the completion callback
//
// Callbacks are executed synchronously. Errors from BeforeHandle and
// BeforeMiddleware terminate the call; errors from OnError and AfterHandle
// are logged because the outcome is already decided.
type CallbackType string

const (
	// CallbackBeforeHandle is triggered once per call before descent starts.
	// Use for request validation or admission control.
	CallbackBeforeHandle CallbackType = "before_handle"

	// CallbackBeforeMiddleware is triggered before each middleware runs.
	// An error is treated as if that middleware had thrown it.
	CallbackBeforeMiddleware CallbackType = "before_middleware"

	// CallbackOnError is triggered when a call completes with an error.
	// Use for alerting or error auditing.
	CallbackOnError CallbackType = "on_error"

	// CallbackAfterHandle is triggered after finalization of every call.
	// Use for metrics collection or response auditing.
	CallbackAfterHandle CallbackType = "after_handle"
)

// CallbackContext provides context information for callback execution.
//
// The Request and Response are the live objects of the call; callbacks may
// inspect them, and hooks that run before finalization may modify them.
type CallbackContext struct {
	// CallID identifies the Handle call (a UUID).
	CallID string

	// Request is the request being dispatched.
	Request *core.Request

	// Response is the shared response of the call.
	Response *core.Response

	// Step is the number of middleware invoked so far in the call.
	Step int

	// Started is when the call began.
	Started time.Time

	// Err is the call's error for OnError and AfterHandle callbacks.
	Err error
}

// Callback defines the interface for dispatch lifecycle hooks.
//
// Implementations should be:
//   - Fast: Callbacks run synchronously inside the call
//   - Safe: Handle errors gracefully and avoid panics
//   - Stateless: Concurrent calls may execute the same callback
type Callback interface {
	// Type returns the callback type this implementation handles.
	Type() CallbackType

	// Execute performs the callback logic with the provided context.
	Execute(ctx context.Context, callbackCtx *CallbackContext) error
}

// FunctionCallback wraps a function as a callback implementation.
//
// Example:
//
//	audit := NewFunctionCallback(
//	    CallbackAfterHandle,
//	    func(ctx context.Context, callbackCtx *CallbackContext) error {
//	        log.Printf("call %s finished: %v", callbackCtx.CallID, callbackCtx.Err)
//	        return nil
//	    },
//	)
type FunctionCallback struct {
	callbackType CallbackType
	fn           func(ctx context.Context, callbackCtx *CallbackContext) error
}

// NewFunctionCallback creates a new function-based callback.
func NewFunctionCallback(
	callbackType CallbackType,
	fn func(ctx context.Context, callbackCtx *CallbackContext) error,
) *FunctionCallback {
	return &FunctionCallback{
		callbackType: callbackType,
		fn:           fn,
	}
}

// Type returns the callback type this function handles.
func (c *FunctionCallback) Type() CallbackType {
	return c.callbackType
}

// Execute calls the wrapped function with the provided context.
func (c *FunctionCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	return c.fn(ctx, callbackCtx)
}

// CallbackManager orchestrates callback execution throughout the call lifecycle.
//
// Callbacks are executed in registration order, and any callback returning
// an error stops the remaining callbacks of that type.
//
// Thread Safety:
// Registration is not synchronized. Register all callbacks before the
// engine starts handling requests; execution is then safe for concurrent use.
type CallbackManager struct {
	callbacks map[CallbackType][]Callback
}

// NewCallbackManager creates a new, empty callback manager.
func NewCallbackManager() *CallbackManager {
	return &CallbackManager{
		callbacks: make(map[CallbackType][]Callback),
	}
}

// RegisterCallback adds a callback to the manager for its type.
//
// Example:
//
//	manager := NewCallbackManager()
//	manager.RegisterCallback(NewRequestValidationCallback(requireMethod))
func (cm *CallbackManager) RegisterCallback(callback Callback) {
	callbackType := callback.Type()
	cm.callbacks[callbackType] = append(cm.callbacks[callbackType], callback)
}

// ExecuteCallbacks executes all registered callbacks for the specified type.
// The first error stops execution and is returned.
func (cm *CallbackManager) ExecuteCallbacks(
	ctx context.Context,
	callbackType CallbackType,
	callbackCtx *CallbackContext,
) error {
	callbacks, exists := cm.callbacks[callbackType]
	if !exists {
		return nil
	}

	for _, callback := range callbacks {
		if err := callback.Execute(ctx, callbackCtx); err != nil {
			return err
		}
	}

	return nil
}

// LoggingCallback forwards lifecycle events to a logging function.
//
// Example:
//
//	callback := NewLoggingCallback(CallbackOnError, func(message string) {
//	    log.Printf("[RPC] %s", message)
//	})
type LoggingCallback struct {
	callbackType CallbackType
	logger       func(message string)
}

// NewLoggingCallback creates a new logging callback.
func NewLoggingCallback(callbackType CallbackType, logger func(message string)) *LoggingCallback {
	return &LoggingCallback{
		callbackType: callbackType,
		logger:       logger,
	}
}

// Type returns the callback type this logger handles.
func (c *LoggingCallback) Type() CallbackType {
	return c.callbackType
}

// Execute logs the lifecycle event. Without a logger function it silently succeeds.
func (c *LoggingCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.logger == nil {
		return nil
	}
	method := ""
	if callbackCtx.Request != nil {
		method = callbackCtx.Request.Method
	}
	message := fmt.Sprintf("[%s] call: %s, method: %s, step: %d", c.callbackType, callbackCtx.CallID, method, callbackCtx.Step)
	if callbackCtx.Err != nil {
		message += fmt.Sprintf(", error: %v", callbackCtx.Err)
	}
	c.logger(message)
	return nil
}

// RequestValidationCallback rejects requests before any middleware runs.
//
// The engine itself does not validate request shape; this hook is the place
// to plug such a check in.
//
// Example:
//
//	validator := func(req *core.Request) error {
//	    if req.Method == "" {
//	        return core.NewError(core.CodeInvalidRequest, "invalid request")
//	    }
//	    return nil
//	}
//	callback := NewRequestValidationCallback(validator)
type RequestValidationCallback struct {
	validator func(req *core.Request) error
}

// NewRequestValidationCallback creates a new request validation callback.
func NewRequestValidationCallback(validator func(req *core.Request) error) *RequestValidationCallback {
	return &RequestValidationCallback{
		validator: validator,
	}
}

// Type returns the callback type (always CallbackBeforeHandle).
func (c *RequestValidationCallback) Type() CallbackType {
	return CallbackBeforeHandle
}

// Execute validates the request.
func (c *RequestValidationCallback) Execute(ctx context.Context, callbackCtx *CallbackContext) error {
	if c.validator != nil && callbackCtx.Request != nil {
		return c.validator(callbackCtx.Request)
	}
	return nil
}
