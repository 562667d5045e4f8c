// Package engine implements the request dispatch engine of rpcmesh.
//
// An Engine owns an ordered list of middleware and runs one request at a
// time per Handle call through that list. Middleware cooperate through two
// continuations: next passes control to the following middleware (optionally
// deferring a return handler), end finalizes the response. A middleware that
// returns an error or panics has "thrown", which is equivalent to end with
// that error.
//
// # Lifecycle of a call
//
//  1. Handle builds a response shell carrying the request's ID and version
//  2. Descend: middleware run in order until one calls end or throws
//  3. Unwind: return handlers registered through next run in reverse order;
//     a failing handler stops unwinding and supersedes the outcome
//  4. Finalize: error outcomes lose Result and carry Error, successful
//     outcomes lose any stray Error
//  5. The completion callback fires exactly once
//
// # Nesting
//
// AsMiddleware turns a whole Engine into one middleware. Inside another
// engine's call the nested stack shares the request, the response and the
// return-handler stack of that call, so a flat stack and the same stack
// split across nested engines produce identical outcomes. When the nested
// stack runs out without end, control falls through to the middleware after
// the adapter. The hooks of the engine that started the call keep running
// for middleware of nested engines.
//
// # Concurrency Model
//
// Execution within a call is cooperative and sequential: control advances
// only when a middleware signals. Middleware may signal later from another
// goroutine; Handle returns while the call is suspended and the remaining
// middleware run on the signalling goroutine. Independent calls are isolated
// from each other. The engine applies no timeout; HandleSync honours the
// caller's context deadline.
//
// # Error Handling
//
//   - end(err) and thrown errors become the call's error
//   - A pending Response.Error at end is treated as end(Response.Error)
//   - Return handler failures supersede any earlier outcome
//   - ErrNoResult, ErrNotEnded, ErrStepLimit and ErrMaxDepth report
//     engine-level failures
//
// # Extensibility
//
// A CallbackManager runs hooks before the call, before each middleware, on
// error and after finalization. Common middleware (method scaffolds,
// async middleware, ID remapping, logging, metrics, rate limiting) live in
// package middleware.
package engine
