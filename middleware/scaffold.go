package middleware

import (
	"context"

	"github.com/hupe1980/rpcmesh/core"
)

// Scaffold routes requests by method name.
//
// A handler value that is a core.Middleware, or a function with the
// core.MiddlewareFunc signature, is delegated to. Any other value is a
// static result: the response gets it and the call ends. Methods without an
// entry fall through to the next middleware.
func Scaffold(handlers map[string]any) core.Middleware {
	return core.MiddlewareFunc(func(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
		h, ok := handlers[req.Method]
		if !ok {
			next(nil)
			return nil
		}

		switch v := h.(type) {
		case core.Middleware:
			return v.ServeRPC(ctx, req, res, next, end)
		case func(context.Context, *core.Request, *core.Response, core.Next, core.End) error:
			return v(ctx, req, res, next, end)
		case nil:
			res.Result = core.NullResult
		default:
			res.Result = v
		}

		end(nil)
		return nil
	})
}
