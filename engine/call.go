package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/rpcmesh/core"
)

type (
	callKey  struct{}
	depthKey struct{}
)

// call is the per-Handle execution context: the response, the shared
// return-handler stack and the step limiter. It travels in the ctx handed
// to every middleware so nested engines join the same call.
type call struct {
	id      string
	ctx     context.Context
	req     *core.Request
	res     *core.Response
	limiter *core.StepLimiter
	started time.Time

	// callbacks are the hooks of the engine that started the call. They
	// run at every nesting depth.
	callbacks *CallbackManager
	maxDepth  int

	// complete runs once, when the call ends, exhausts or throws.
	complete func(err error, exhausted bool)

	// err is the final outcome, set by the top-level completion.
	err error

	mu       sync.Mutex
	handlers []core.ReturnHandler
	done     bool
}

func callFromContext(ctx context.Context) (*call, bool) {
	c, ok := ctx.Value(callKey{}).(*call)
	return c, ok
}

func depthFromContext(ctx context.Context) int {
	depth, _ := ctx.Value(depthKey{}).(int)
	return depth
}

func (c *call) push(h core.ReturnHandler) {
	c.mu.Lock()
	c.handlers = append(c.handlers, h)
	c.mu.Unlock()
}

func (c *call) isDone() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

func (c *call) finish(err error, exhausted bool) {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return
	}
	c.done = true
	c.mu.Unlock()

	c.complete(err, exhausted)
}

// unwind pops return handlers most-recent first. The first failing handler
// stops unwinding and its error is returned.
func (c *call) unwind() error {
	for {
		c.mu.Lock()
		n := len(c.handlers)
		if n == 0 {
			c.mu.Unlock()
			return nil
		}
		h := c.handlers[n-1]
		c.handlers = c.handlers[:n-1]
		c.mu.Unlock()

		if err := runReturnHandler(h); err != nil {
			return err
		}
	}
}

func (c *call) callbackContext(step int, err error) *CallbackContext {
	return &CallbackContext{
		CallID:   c.id,
		Request:  c.req,
		Response: c.res,
		Step:     step,
		Started:  c.started,
		Err:      err,
	}
}

// descent walks one engine's middleware list on behalf of a call. Nested
// engines run their own descent over the same call.
type descent struct {
	c     *call
	ctx   context.Context
	owner *Engine
	stack []core.Middleware
	pos   int

	// exhausted is invoked when the list runs out without an end.
	exhausted func()
}

// run is a trampoline: synchronous next calls keep the loop going, an
// asynchronous next resumes it on the signalling goroutine.
func (d *descent) run() {
	for {
		if d.c.isDone() {
			return
		}
		if d.pos >= len(d.stack) {
			d.exhausted()
			return
		}
		mw := d.stack[d.pos]
		d.pos++
		if !d.step(mw) {
			return
		}
	}
}

func (d *descent) step(mw core.Middleware) bool {
	c := d.c
	if err := c.limiter.Increment(); err != nil {
		c.finish(fmt.Errorf("%w: %w", ErrStepLimit, err), false)
		return false
	}

	step := c.limiter.Count()
	if err := d.beforeMiddleware(step); err != nil {
		c.finish(err, false)
		return false
	}

	d.owner.logger.Debug("middleware step", "call_id", c.id, "step", step, "position", d.pos-1)

	s := &signal{d: d, step: step}
	err := serve(mw, d.ctx, c.req, c.res, s.next, s.end)
	return s.settle(err)
}

// beforeMiddleware runs the call's hooks, then those of a nested engine
// with its own manager.
func (d *descent) beforeMiddleware(step int) error {
	c := d.c
	cbCtx := c.callbackContext(step, nil)
	if err := c.callbacks.ExecuteCallbacks(c.ctx, CallbackBeforeMiddleware, cbCtx); err != nil {
		return err
	}
	if d.owner.callbacks != c.callbacks {
		return d.owner.callbacks.ExecuteCallbacks(c.ctx, CallbackBeforeMiddleware, cbCtx)
	}
	return nil
}

// signal holds the continuation state of one middleware invocation.
type signal struct {
	d    *descent
	step int

	mu        sync.Mutex
	returned  bool
	signalled bool
	advanced  bool
}

func (s *signal) next(h core.ReturnHandler) {
	s.mu.Lock()
	if s.signalled {
		s.mu.Unlock()
		s.d.owner.logger.Warn("middleware signalled more than once", "call_id", s.d.c.id, "step", s.step, "signal", "next")
		return
	}
	s.signalled = true
	s.advanced = true
	if h != nil {
		s.d.c.push(h)
	}
	resume := s.returned
	s.mu.Unlock()

	if resume {
		s.d.run()
	}
}

func (s *signal) end(err error) {
	s.mu.Lock()
	if s.signalled {
		s.mu.Unlock()
		s.d.owner.logger.Warn("middleware signalled more than once", "call_id", s.d.c.id, "step", s.step, "signal", "end")
		return
	}
	s.signalled = true
	s.mu.Unlock()

	s.d.c.finish(err, false)
}

// settle records that ServeRPC returned and reports whether descent
// continues on the current goroutine. A returned error after next wins,
// since descent has not moved past this middleware yet.
func (s *signal) settle(err error) bool {
	s.mu.Lock()
	s.returned = true
	signalled, advanced := s.signalled, s.advanced
	throw := err != nil && (!signalled || advanced)
	if throw {
		s.signalled = true
		s.advanced = false
	}
	s.mu.Unlock()

	switch {
	case throw:
		s.d.c.finish(err, false)
		return false
	case err != nil:
		s.d.owner.logger.Warn("middleware returned error after end", "call_id", s.d.c.id, "step", s.step, "error", err)
		return false
	default:
		return advanced
	}
}

func serve(mw core.Middleware, ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("middleware panicked: %v", r)
		}
	}()

	return mw.ServeRPC(ctx, req, res, next, end)
}

func runReturnHandler(h core.ReturnHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("return handler panicked: %v", r)
		}
	}()

	return h()
}
