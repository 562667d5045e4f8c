package core

import "context"

// Middleware is one unit of an engine's stack.
//
// ServeRPC must signal exactly once: call next to pass control to the
// following middleware, call end to finalize the response, or return a
// non-nil error (a "throw", equivalent to end with that error). Signalling
// may happen after ServeRPC returns, from any goroutine; the call stays
// suspended until it does. Panics are recovered by the engine and treated as
// a thrown error.
//
// The ctx carries the per-call execution context and is cancelled once the
// completion callback has fired.
type Middleware interface {
	ServeRPC(ctx context.Context, req *Request, res *Response, next Next, end End) error
}

// MiddlewareFunc adapts an ordinary function to the Middleware interface.
type MiddlewareFunc func(ctx context.Context, req *Request, res *Response, next Next, end End) error

// ServeRPC calls f.
func (f MiddlewareFunc) ServeRPC(ctx context.Context, req *Request, res *Response, next Next, end End) error {
	return f(ctx, req, res, next, end)
}

// Next continues descent. A non-nil handler is pushed onto the call's shared
// return-handler stack and runs during unwind, after every later middleware
// has finished, in reverse registration order.
type Next func(h ReturnHandler)

// End finalizes the response. A non-nil err (or a pending Response.Error)
// completes the call with an error.
type End func(err error)

// ReturnHandler is a deferred unwind step. A returned error (or panic) stops
// unwinding and supersedes the call's outcome.
type ReturnHandler func() error

// Callback receives the outcome of a Handle call exactly once. err is nil on
// success; res is always non-nil and carries exactly one of Result or Error.
type Callback func(err error, res *Response)
