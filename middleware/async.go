package middleware

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hupe1980/rpcmesh/core"
)

// ErrNextCalledTwice is returned by the next function of an AsyncFunc that
// is invoked more than once.
var ErrNextCalledTwice = errors.New("async middleware: next called more than once")

// AsyncFunc is a middleware written in straight-line style.
//
// Calling next continues descent and blocks until unwind reaches this
// middleware, so code after next post-processes the final response. next
// returns ctx.Err() if the call completes without unwinding back here.
//
// Returning without calling next ends the call with the returned error.
// Returning an error after next supersedes the call's outcome.
type AsyncFunc func(ctx context.Context, req *core.Request, res *core.Response, next func() error) error

// Async adapts fn to the next/end contract. fn runs on its own goroutine.
//
//	middleware.Async(func(ctx context.Context, req *core.Request, res *core.Response, next func() error) error {
//	    if err := next(); err != nil {
//	        return err
//	    }
//	    res.Set("handled_at", time.Now())
//	    return nil
//	})
func Async(fn AsyncFunc) core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
		r := &asyncRun{
			ctx:      ctx,
			next:     next,
			resume:   make(chan struct{}),
			finished: make(chan error, 1),
		}
		go r.run(fn, req, res, end)
		return nil
	})
}

type asyncRun struct {
	ctx  context.Context
	next core.Next

	mu       sync.Mutex
	advanced bool

	resume   chan struct{}
	finished chan error
}

func (r *asyncRun) run(fn AsyncFunc, req *core.Request, res *core.Response, end core.End) {
	err := r.call(fn, req, res)

	r.mu.Lock()
	advanced := r.advanced
	r.mu.Unlock()

	if advanced {
		r.finished <- err
		return
	}
	end(err)
}

func (r *asyncRun) call(fn AsyncFunc, req *core.Request, res *core.Response) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("async middleware panicked: %v", p)
		}
	}()

	return fn(r.ctx, req, res, r.continueDescent)
}

// continueDescent hands control to the engine on a fresh goroutine: the
// remaining descent may run on it synchronously, and the return handler
// blocks it until fn finishes post-processing.
func (r *asyncRun) continueDescent() error {
	r.mu.Lock()
	if r.advanced {
		r.mu.Unlock()
		return ErrNextCalledTwice
	}
	r.advanced = true
	r.mu.Unlock()

	go r.next(func() error {
		close(r.resume)
		return <-r.finished
	})

	select {
	case <-r.resume:
		return nil
	case <-r.ctx.Done():
		return r.ctx.Err()
	}
}
