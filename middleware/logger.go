package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/engine"
	"github.com/hupe1980/rpcmesh/logging"
)

var errNoResult = errors.New("response has no result")

// Logger logs method, request ID, duration and outcome of every call whose
// unwind reaches it. An *logging.RPCLogger records through LogCall.
//
// A return handler registered after this middleware that fails stops the
// unwind before it, so that call is not logged. LoggerCallback sees every
// call an engine starts.
func Logger(l logging.Logger) core.Middleware {
	record := callRecorder(l)

	return core.MiddlewareFunc(func(_ context.Context, req *core.Request, res *core.Response, next core.Next, _ core.End) error {
		start := time.Now()
		method, id := req.Method, req.ID

		next(func() error {
			record(method, id, time.Since(start), outcomeError(res))
			return nil
		})
		return nil
	})
}

// LoggerCallback logs every finished call of the engine it is registered
// with, as an after_handle hook.
//
//	e.Callbacks().RegisterCallback(middleware.LoggerCallback(logger))
func LoggerCallback(l logging.Logger) engine.Callback {
	record := callRecorder(l)

	return engine.NewFunctionCallback(engine.CallbackAfterHandle, func(_ context.Context, cbCtx *engine.CallbackContext) error {
		var method string
		var id any
		if cbCtx.Request != nil {
			method, id = cbCtx.Request.Method, cbCtx.Request.ID
		}
		record(method, id, time.Since(cbCtx.Started), cbCtx.Err)
		return nil
	})
}

func callRecorder(l logging.Logger) func(method string, id any, dur time.Duration, err error) {
	if l == nil {
		l = logging.NoOpLogger{}
	}
	rl, structured := l.(*logging.RPCLogger)

	return func(method string, id any, dur time.Duration, err error) {
		if structured {
			rl.WithContext("id", id).LogCall(method, dur, err == nil, err)
			return
		}
		if err != nil {
			l.Error("rpc call failed", "method", method, "id", id, "duration", dur, "error", err)
			return
		}
		l.Info("rpc call completed", "method", method, "id", id, "duration", dur)
	}
}

// outcomeError reports the error a response will be finalized with, as far
// as it is known while unwinding.
func outcomeError(res *core.Response) error {
	switch {
	case res.Error != nil:
		return res.Error
	case !res.HasResult():
		return errNoResult
	default:
		return nil
	}
}
