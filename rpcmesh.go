// Package rpcmesh provides a high-level façade over the middleware Engine
// and its companion middleware, enabling rapid construction of JSON-RPC
// request pipelines. Most applications interact with this package by:
//  1. Creating an RPCMesh via New() or NewFromConfig()
//  2. Registering middleware with Use (handlers, scaffolds, nested meshes)
//  3. Dispatching requests asynchronously (Handle) or synchronously (HandleSync)
//
// The façade delegates dispatch to engine.Engine while keeping setup and
// usage ergonomics concise. Transport and serialization stay with the caller.
package rpcmesh

import (
	"context"
	"fmt"

	"github.com/hupe1980/rpcmesh/config"
	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/engine"
	"github.com/hupe1980/rpcmesh/logging"
	"github.com/hupe1980/rpcmesh/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Options configures the RPCMesh instance.
type Options struct {
	// EngineConfig controls completion behavior (RequireEnd, MaxSteps).
	EngineConfig engine.Config

	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger

	// Callbacks holds lifecycle hooks; an empty manager if nil.
	Callbacks *engine.CallbackManager

	// Registerer receives request metrics when NewFromConfig enables them.
	// Defaults to prometheus.DefaultRegisterer.
	Registerer prometheus.Registerer
}

// RPCMesh is the high-level façade around one engine.
type RPCMesh struct {
	opts   Options
	engine *engine.Engine
}

var _ core.Engine = (*RPCMesh)(nil)

// New creates a new RPCMesh with an empty middleware stack.
func New(optFns ...func(o *Options)) *RPCMesh {
	opts := Options{
		EngineConfig: engine.DefaultConfig,
		Logger:       logging.NoOpLogger{},
		Registerer:   prometheus.DefaultRegisterer,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	e := engine.New(func(o *engine.Options) {
		o.Config = opts.EngineConfig
		o.Logger = opts.Logger
		o.Callbacks = opts.Callbacks
	})

	return &RPCMesh{opts: opts, engine: e}
}

// NewFromConfig builds an RPCMesh from loaded configuration. Request
// logging and metrics (when enabled) are after_handle hooks, so they record
// every call the mesh starts, including calls whose unwind stops early. The
// stack is seeded with rate limiting (when enabled) and a scaffold serving
// cfg.Methods; middleware added with Use run after it and see every method
// the scaffold does not answer.
func NewFromConfig(cfg *config.Config, optFns ...func(o *Options)) (*RPCMesh, error) {
	if cfg == nil {
		d := config.Defaults()
		cfg = &d
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logger := cfg.Logger()
	m := New(append([]func(o *Options){func(o *Options) {
		o.EngineConfig = cfg.EngineOptions()
		o.Logger = logger.WithComponent("engine")
	}}, optFns...)...)

	hooks := m.engine.Callbacks()
	hooks.RegisterCallback(middleware.LoggerCallback(logger.WithComponent("requests")))

	if cfg.Metrics.Enabled {
		mc, err := middleware.NewMetricsCollector(m.opts.Registerer)
		if err != nil {
			return nil, fmt.Errorf("registering metrics: %w", err)
		}
		hooks.RegisterCallback(mc.Callback())
	}

	if cfg.RateLimit.Enabled {
		m.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}

	if len(cfg.Methods) > 0 {
		m.Use(middleware.Scaffold(cfg.Methods))
	}

	return m, nil
}

// Use appends middleware to the stack.
func (m *RPCMesh) Use(mws ...core.Middleware) { m.engine.Push(mws...) }

// Push implements core.Engine; it is an alias of Use.
func (m *RPCMesh) Push(mws ...core.Middleware) { m.Use(mws...) }

// Engine returns the underlying engine.
func (m *RPCMesh) Engine() *engine.Engine { return m.engine }

// Handle dispatches req; cb fires exactly once with the final response.
func (m *RPCMesh) Handle(ctx context.Context, req *core.Request, cb core.Callback) {
	m.engine.Handle(ctx, req, cb)
}

// HandleSync dispatches req and waits for the outcome or ctx.
func (m *RPCMesh) HandleSync(ctx context.Context, req *core.Request) (*core.Response, error) {
	return m.engine.HandleSync(ctx, req)
}

// AsMiddleware exposes the whole mesh as one middleware of another engine.
func (m *RPCMesh) AsMiddleware() core.Middleware { return m.engine.AsMiddleware() }
