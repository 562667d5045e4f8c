package middleware

import (
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/engine"
)

// Merge combines mws into a single middleware backed by a nested engine.
// Inside an engine call the group behaves exactly as if mws were pushed
// flat in its place.
func Merge(mws ...core.Middleware) core.Middleware {
	e := engine.New()
	e.Push(mws...)
	return e.AsMiddleware()
}
