package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/hupe1980/rpcmesh/core"
)

// OriginalIDKey is the Request.Meta key under which IDRemap keeps the
// caller's ID while the downstream stack sees the remapped one.
const OriginalIDKey = "original_id"

// IDRemap gives the downstream stack a fresh unique request ID and restores
// the caller's ID on the way back. Use it in front of middleware that
// multiplex requests from several callers onto one upstream.
func IDRemap() core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, req *core.Request, res *core.Response, next core.Next, _ core.End) error {
		orig := req.ID
		id := uuid.NewString()

		req.ID, res.ID = id, id
		req.Set(OriginalIDKey, orig)

		next(func() error {
			req.ID, res.ID = orig, orig
			delete(req.Meta, OriginalIDKey)
			return nil
		})
		return nil
	})
}
