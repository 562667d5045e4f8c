package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/engine"
	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values of rpcmesh_requests_total.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// MetricsCollector holds the Prometheus vectors observed by the Metrics
// middleware.
type MetricsCollector struct {
	// RequestsTotal counts finished calls by method and outcome.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration records call duration in seconds by method.
	RequestDuration *prometheus.HistogramVec
}

// NewMetricsCollector creates the vectors and registers them with reg
// (prometheus.DefaultRegisterer when nil). Vectors already registered under
// the same names are reused, so several engines can share one registry.
func NewMetricsCollector(reg prometheus.Registerer) (*MetricsCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rpcmesh_requests_total",
			Help: "Total handled requests",
		},
		[]string{"method", "outcome"},
	)
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rpcmesh_request_duration_seconds",
			Help:    "Request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	var err error
	if requests, err = register(reg, requests); err != nil {
		return nil, err
	}
	if duration, err = register(reg, duration); err != nil {
		return nil, err
	}

	return &MetricsCollector{RequestsTotal: requests, RequestDuration: duration}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Middleware observes every call whose unwind reaches it. A return handler
// registered later that fails stops the unwind before it; use Callback to
// count every call an engine starts.
func (m *MetricsCollector) Middleware() core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, req *core.Request, res *core.Response, next core.Next, _ core.End) error {
		start := time.Now()
		method := req.Method

		next(func() error {
			m.observe(method, time.Since(start), outcomeError(res))
			return nil
		})
		return nil
	})
}

// Callback observes every finished call as an after_handle hook.
func (m *MetricsCollector) Callback() engine.Callback {
	return engine.NewFunctionCallback(engine.CallbackAfterHandle, func(_ context.Context, cbCtx *engine.CallbackContext) error {
		var method string
		if cbCtx.Request != nil {
			method = cbCtx.Request.Method
		}
		m.observe(method, time.Since(cbCtx.Started), cbCtx.Err)
		return nil
	})
}

func (m *MetricsCollector) observe(method string, dur time.Duration, err error) {
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.RequestsTotal.WithLabelValues(method, outcome).Inc()
	m.RequestDuration.WithLabelValues(method).Observe(dur.Seconds())
}

// Metrics registers a collector with reg and returns its middleware.
func Metrics(reg prometheus.Registerer) (core.Middleware, error) {
	m, err := NewMetricsCollector(reg)
	if err != nil {
		return nil, err
	}
	return m.Middleware(), nil
}
