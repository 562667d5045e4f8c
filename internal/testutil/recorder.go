package testutil

import (
	"sync"
	"time"

	"github.com/hupe1980/rpcmesh/core"
)

// Recorder captures completion callback invocations.
//
//	rec := NewRecorder()
//	e.Handle(ctx, req, rec.Callback)
//	out, ok := rec.Wait(time.Second)
type Recorder struct {
	mu    sync.Mutex
	calls int
	err   error
	res   *core.Response
	done  chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{done: make(chan struct{})}
}

// Callback is a core.Callback that records its arguments.
func (r *Recorder) Callback(err error, res *core.Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if r.calls == 1 {
		r.err, r.res = err, res
		close(r.done)
	}
}

// Calls returns how many times the callback fired.
func (r *Recorder) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Fired reports whether the callback fired at least once.
func (r *Recorder) Fired() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Outcome is one recorded callback invocation.
type Outcome struct {
	Err error
	Res *core.Response
}

// Wait blocks until the first callback or the timeout. ok is false on timeout.
func (r *Recorder) Wait(timeout time.Duration) (Outcome, bool) {
	select {
	case <-r.done:
		r.mu.Lock()
		defer r.mu.Unlock()
		return Outcome{Err: r.err, Res: r.res}, true
	case <-time.After(timeout):
		return Outcome{}, false
	}
}
