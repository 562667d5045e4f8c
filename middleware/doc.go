// Package middleware provides companion middleware for engine.Engine.
//
// Each constructor returns a core.Middleware that follows the next/end
// contract, so they compose by pushing them onto an engine in order:
//
//	e := engine.New()
//	e.Push(
//	    middleware.Logger(logger),
//	    middleware.IDRemap(),
//	    middleware.RateLimit(50, 10),
//	    middleware.Scaffold(map[string]any{
//	        "net_version": "1",
//	        "eth_call":    callHandler,
//	    }),
//	)
//
// Middleware that observe the outcome (Logger, Metrics) do so from a return
// handler. They only see calls whose unwind reaches them: a return handler
// that fails further down the stack stops unwinding before them.
package middleware
