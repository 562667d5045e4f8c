package middleware

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/rpcmesh/core"
	"golang.org/x/time/rate"
)

// MethodLimiter applies a token bucket per method name and periodically
// evicts idle entries.
type MethodLimiter struct {
	limit   rate.Limit
	burst   int
	mu      sync.Mutex
	byKey   map[string]*bucket
	hits    uint64
	idleTTL time.Duration
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMethodLimiter creates a per-method limiter; returns nil if args are invalid.
// A nil *MethodLimiter allows everything.
func NewMethodLimiter(rps float64, burst int, idleTTL time.Duration) *MethodLimiter {
	if rps <= 0 || burst <= 0 {
		return nil
	}
	if idleTTL <= 0 {
		idleTTL = 10 * time.Minute
	}
	return &MethodLimiter{
		limit:   rate.Limit(rps),
		burst:   burst,
		byKey:   make(map[string]*bucket),
		idleTTL: idleTTL,
	}
}

// Allow reports whether one token can be consumed for the method at now.
func (l *MethodLimiter) Allow(method string, now time.Time) bool {
	if l == nil {
		return true
	}
	method = strings.TrimSpace(method)
	if method == "" {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.byKey[method]
	if !ok {
		b = &bucket{
			limiter:  rate.NewLimiter(l.limit, l.burst),
			lastSeen: now,
		}
		l.byKey[method] = b
	}
	b.lastSeen = now
	allowed := b.limiter.AllowN(now, 1)

	l.hits++
	if l.hits%512 == 0 {
		cutoff := now.Add(-l.idleTTL)
		for k, v := range l.byKey {
			if v.lastSeen.Before(cutoff) {
				delete(l.byKey, k)
			}
		}
	}

	return allowed
}

// Middleware ends calls whose method bucket is empty with CodeLimitExceeded
// and passes everything else through.
func (l *MethodLimiter) Middleware() core.Middleware {
	return core.MiddlewareFunc(func(_ context.Context, req *core.Request, _ *core.Response, next core.Next, end core.End) error {
		if !l.Allow(req.Method, time.Now()) {
			end(core.NewError(core.CodeLimitExceeded, "rate limit exceeded").WithData(map[string]any{"method": req.Method}))
			return nil
		}
		next(nil)
		return nil
	})
}

// RateLimit limits each method to rps requests per second with the given
// burst. Non-positive arguments disable limiting.
func RateLimit(rps float64, burst int) core.Middleware {
	return NewMethodLimiter(rps, burst, 0).Middleware()
}
