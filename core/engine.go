package core

import "context"

// Engine sequences middleware for one request at a time per call.
//
// Implementations MUST:
//   - Fire the completion callback exactly once per Handle call
//   - Share one Response and one return-handler stack across nested engines
//   - Strip Result on error completions and stray Error on successful ones
//   - Keep independent Handle calls isolated from each other
type Engine interface {
	// Push appends middleware to the stack. Configure before handling.
	Push(mws ...Middleware)

	// Handle runs req through the stack and reports through cb. It returns
	// as soon as descent suspends or completes; cb may fire later.
	Handle(ctx context.Context, req *Request, cb Callback)

	// HandleSync runs req and blocks until completion or ctx is done.
	HandleSync(ctx context.Context, req *Request) (*Response, error)

	// AsMiddleware exposes the whole stack as a single middleware usable in
	// another engine.
	AsMiddleware() Middleware
}
