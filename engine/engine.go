package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/logging"
)

var (
	// ErrNoResult is returned when a call completes without an error and
	// without a result.
	ErrNoResult = errors.New("response has no error or result")

	// ErrNotEnded is returned when Config.RequireEnd is set and the stack
	// was exhausted without any middleware calling end.
	ErrNotEnded = errors.New("nothing ended request")

	// ErrStepLimit is returned when a call invokes more middleware than
	// Config.MaxSteps allows.
	ErrStepLimit = errors.New("middleware step limit exceeded")

	// ErrMaxDepth is returned when engines nest deeper than
	// Config.MaxDepth, typically an engine nested inside itself.
	ErrMaxDepth = errors.New("engine nesting depth exceeded")
)

// Config defines tuning parameters for the Engine's completion behavior.
//
// Example:
//
//	cfg := Config{
//	    RequireEnd: true,
//	    MaxSteps:   256,
//	    MaxDepth:   8,
//	}
type Config struct {
	// RequireEnd turns top-level stack exhaustion into an ErrNotEnded
	// failure. When false, exhaustion completes the call with whatever
	// response state exists (and ErrNoResult if there is none).
	RequireEnd bool

	// MaxSteps bounds the number of middleware invocations in one call,
	// across all nesting levels. Set to 0 for unlimited.
	MaxSteps int

	// MaxDepth bounds how deep engines may nest inside one call, counting
	// the top-level engine as depth 0. Set to 0 for unlimited.
	MaxDepth int
}

// DefaultConfig provides the default completion behavior.
//
// Configuration values:
//   - RequireEnd: false (exhaustion is an implicit completion)
//   - MaxSteps: 0 (stacks of any length)
//   - MaxDepth: 64 (catches engines accidentally nested inside themselves)
var DefaultConfig = Config{
	RequireEnd: false,
	MaxSteps:   0,
	MaxDepth:   64,
}

// Options configures an Engine instance using the functional options pattern.
//
// Example:
//
//	e := New(func(o *Options) {
//	    o.Config.RequireEnd = true
//	    o.Logger = logging.NewSlogLogger(logging.LogLevelDebug, "text", false)
//	})
type Options struct {
	// Config contains operational parameters for the engine behavior.
	// Defaults to DefaultConfig if not specified.
	Config Config

	// Logger provides structured logging for debugging and monitoring.
	// Defaults to NoOp logger if nil.
	Logger logging.Logger

	// Callbacks holds lifecycle hooks. Defaults to an empty manager.
	Callbacks *CallbackManager
}

// Engine runs requests through an ordered stack of middleware.
//
// Each Handle call owns its response, cursor and return-handler stack, so
// independent calls on one Engine do not interfere. The stack itself is
// shared: Push while calls are in flight only affects later calls, but
// configuring before use is the supported pattern.
//
// Example Usage:
//
//	e := New()
//	e.Push(core.MiddlewareFunc(func(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
//	    res.Result = "ok"
//	    end(nil)
//	    return nil
//	}))
//
//	e.Handle(ctx, req, func(err error, res *core.Response) {
//	    // exactly once
//	})
type Engine struct {
	config    Config
	logger    logging.Logger
	callbacks *CallbackManager

	mu    sync.RWMutex
	stack []core.Middleware
}

var _ core.Engine = (*Engine)(nil)

// New creates a new Engine with sensible defaults and optional configuration.
func New(optFns ...func(o *Options)) *Engine {
	opts := Options{
		Config: DefaultConfig,
		Logger: logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	if opts.Callbacks == nil {
		opts.Callbacks = NewCallbackManager()
	}

	return &Engine{
		config:    opts.Config,
		logger:    opts.Logger,
		callbacks: opts.Callbacks,
	}
}

// Push appends middleware to the stack. No validation is performed; a
// misbehaving middleware is only detected when it runs.
func (e *Engine) Push(mws ...core.Middleware) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stack = append(e.stack, mws...)
}

// Len returns the number of registered middleware.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.stack)
}

// Callbacks returns the engine's lifecycle hook manager.
func (e *Engine) Callbacks() *CallbackManager { return e.callbacks }

func (e *Engine) snapshot() []core.Middleware {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]core.Middleware(nil), e.stack...)
}

// Handle runs req through the stack and reports the outcome through cb.
//
// Handle returns once descent completes or suspends on a middleware that
// has not yet signalled. cb fires exactly once, possibly on the goroutine
// of a middleware that signalled late. No timeout is applied; use
// HandleSync with a deadline, or a middleware, for that.
func (e *Engine) Handle(ctx context.Context, req *core.Request, cb core.Callback) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cb == nil {
		cb = func(error, *core.Response) {}
	}

	c := &call{
		id:        uuid.NewString(),
		req:       req,
		res:       core.NewResponse(req),
		limiter:   core.NewStepLimiter(e.config.MaxSteps),
		started:   time.Now(),
		callbacks: e.callbacks,
		maxDepth:  e.config.MaxDepth,
	}
	callCtx, cancel := context.WithCancel(context.WithValue(ctx, callKey{}, c))
	c.ctx = callCtx

	origID, origVersion := req.ID, req.JSONRPC
	c.complete = func(err error, exhausted bool) {
		e.complete(c, err, exhausted)
		c.res.ID, c.res.JSONRPC = origID, origVersion
		if hookErr := e.callbacks.ExecuteCallbacks(c.ctx, CallbackAfterHandle, c.callbackContext(c.limiter.Count(), c.err)); hookErr != nil {
			e.logger.Warn("after_handle callback failed", "call_id", c.id, "error", hookErr)
		}
		defer cancel()
		cb(c.err, c.res)
	}

	e.logger.Debug("rpc call started", "call_id", c.id, "method", req.Method)

	if err := e.callbacks.ExecuteCallbacks(c.ctx, CallbackBeforeHandle, c.callbackContext(0, nil)); err != nil {
		c.finish(err, false)
		return
	}

	d := &descent{
		c:         c,
		ctx:       c.ctx,
		owner:     e,
		stack:     e.snapshot(),
		exhausted: func() { c.finish(nil, true) },
	}
	d.run()
}

// complete runs unwind and finalization for a top-level call and stores
// the outcome on c.
func (e *Engine) complete(c *call, err error, exhausted bool) {
	res := c.res

	if err == nil && res.Error != nil {
		err = res.Error
	}
	if err == nil && exhausted && e.config.RequireEnd {
		err = fmt.Errorf("%w: method %q", ErrNotEnded, c.req.Method)
	}
	if err != nil {
		res.Error = core.ToError(err)
	}

	if hErr := c.unwind(); hErr != nil {
		err = hErr
		res.Error = core.ToError(hErr)
	}

	if err == nil && !res.HasResult() {
		err = fmt.Errorf("%w: method %q", ErrNoResult, c.req.Method)
	}

	if err != nil {
		res.Result = nil
		if res.Error == nil {
			res.Error = core.ToError(err)
		}
		if hookErr := e.callbacks.ExecuteCallbacks(c.ctx, CallbackOnError, c.callbackContext(c.limiter.Count(), err)); hookErr != nil {
			e.logger.Warn("on_error callback failed", "call_id", c.id, "error", hookErr)
		}
		e.logger.Error("rpc call failed", "call_id", c.id, "method", c.req.Method, "steps", c.limiter.Count(), "error", err)
	} else {
		res.Error = nil
		e.logger.Debug("rpc call completed", "call_id", c.id, "method", c.req.Method, "steps", c.limiter.Count(), "exhausted", exhausted)
	}

	c.err = err
}

// HandleSync runs req and blocks until the callback fires or ctx is done.
// It is the caller-side answer to middleware that never signal.
func (e *Engine) HandleSync(ctx context.Context, req *core.Request) (*core.Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	type outcome struct {
		res *core.Response
		err error
	}
	done := make(chan outcome, 1)

	e.Handle(ctx, req, func(err error, res *core.Response) {
		done <- outcome{res: res, err: err}
	})

	select {
	case o := <-done:
		return o.res, o.err
	default:
	}

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// AsMiddleware exposes the engine's stack as a single middleware.
//
// Inside another engine's call the inner stack joins that call: it shares
// the request, the response, the return-handler stack and the step limit.
// An inner end ends the whole call, an inner error is the adapter's error,
// and exhausting the inner stack falls through to the outer next.
//
// Outside any engine call (a foreign runner) the inner stack keeps a private
// handler stack: fallthrough hands it to the outer next as one handler, and
// an inner end unwinds it before calling the outer end.
func (e *Engine) AsMiddleware() core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
		if c, ok := callFromContext(ctx); ok && c.req == req && c.res == res {
			depth := depthFromContext(ctx) + 1
			if c.maxDepth > 0 && depth > c.maxDepth {
				return fmt.Errorf("%w: %d", ErrMaxDepth, c.maxDepth)
			}
			d := &descent{
				c:         c,
				ctx:       context.WithValue(ctx, depthKey{}, depth),
				owner:     e,
				stack:     e.snapshot(),
				exhausted: func() { next(nil) },
			}
			d.run()
			return nil
		}

		e.serveDetached(ctx, req, res, next, end)
		return nil
	})
}

func (e *Engine) serveDetached(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) {
	c := &call{
		id:        uuid.NewString(),
		req:       req,
		res:       res,
		limiter:   core.NewStepLimiter(e.config.MaxSteps),
		started:   time.Now(),
		callbacks: e.callbacks,
		maxDepth:  e.config.MaxDepth,
	}
	callCtx, cancel := context.WithCancel(context.WithValue(ctx, callKey{}, c))
	c.ctx = callCtx

	// The private ctx is cancelled once the private handlers have unwound,
	// so middleware waiting on it are released even when an unwind stops
	// early.
	c.complete = func(err error, exhausted bool) {
		if exhausted {
			next(func() error {
				defer cancel()
				return c.unwind()
			})
			return
		}
		if err != nil {
			res.Error = core.ToError(err)
		}
		if hErr := c.unwind(); hErr != nil {
			err = hErr
		}
		cancel()
		end(err)
	}

	e.logger.Debug("detached stack started", "call_id", c.id, "method", req.Method)

	d := &descent{
		c:         c,
		ctx:       c.ctx,
		owner:     e,
		stack:     e.snapshot(),
		exhausted: func() { c.finish(nil, true) },
	}
	d.run()
}
