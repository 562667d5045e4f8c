package testutil

import (
	"context"
	"sync"

	"github.com/hupe1980/rpcmesh/core"
)

// SetResult returns a middleware that sets result and ends.
func SetResult(result any) core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, _ *core.Request, res *core.Response, _ core.Next, end core.End) error {
		res.Result = result
		end(nil)
		return nil
	})
}

// PassThrough returns a middleware that calls next without a handler.
func PassThrough() core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, _ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		next(nil)
		return nil
	})
}

// Trace records the order of descent and unwind events.
type Trace struct {
	mu     sync.Mutex
	events []string
}

// Add appends an event.
func (t *Trace) Add(ev string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
}

// Events returns a copy of the recorded events.
func (t *Trace) Events() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.events...)
}

// Step returns a middleware that records "name" on descent and "name:return"
// from its return handler, then calls next.
func (t *Trace) Step(name string) core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, _ *core.Request, _ *core.Response, next core.Next, _ core.End) error {
		t.Add(name)
		next(func() error {
			t.Add(name + ":return")
			return nil
		})
		return nil
	})
}
