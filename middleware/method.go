package middleware

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hupe1980/rpcmesh/core"
	"github.com/hupe1980/rpcmesh/internal/schema"
	"github.com/hupe1980/rpcmesh/logging"
)

// ValidationError is returned as the Data of an invalid-params error when a
// request's params do not match the method's schema.
type ValidationError = schema.ValidationError

// MethodFunc implements one method on already-validated named params.
type MethodFunc func(ctx context.Context, args map[string]any) (any, error)

// MethodHandler exposes a plain Go function as the handler of one method.
//
// Responsibilities:
//   - Holds a minimal JSON-Schema-like description of the named params
//   - Validates params before execution (CodeInvalidParams on mismatch)
//   - Sets the function's return value as the result and ends the call
//   - Passes *core.Error returned by the function through unchanged; any
//     other error becomes an internal error
//
// Requests for other methods fall through. A MethodHandler has no mutable
// state after construction and is safe for concurrent use.
type MethodHandler struct {
	name        string
	description string
	parameters  map[string]any
	fn          MethodFunc
	logger      logging.Logger
}

// NewMethodHandler constructs a handler from an explicit schema.
//
// Example:
//
//	sum := NewMethodHandler(
//	  "calc_sum",
//	  "Calculate the sum of two numbers",
//	  map[string]any{
//	    "type": "object",
//	    "properties": map[string]any{
//	      "a": map[string]any{"type": "number"},
//	      "b": map[string]any{"type": "number"},
//	    },
//	    "required": []string{"a", "b"},
//	  },
//	  func(ctx context.Context, args map[string]any) (any, error) {
//	    return args["a"].(float64) + args["b"].(float64), nil
//	  },
//	)
func NewMethodHandler(name, description string, parameters map[string]any, fn MethodFunc) *MethodHandler {
	return &MethodHandler{
		name:        name,
		description: description,
		parameters:  parameters,
		fn:          fn,
		logger:      logging.NoOpLogger{},
	}
}

// NewMethodHandlerFromStruct derives the params schema from a struct.
//
//	type SumArgs struct {
//	  A float64 `json:"a" description:"First addend"`
//	  B float64 `json:"b" description:"Second addend"`
//	}
func NewMethodHandlerFromStruct(name, description string, structType any, fn MethodFunc) *MethodHandler {
	return NewMethodHandler(name, description, schema.FromStruct(structType), fn)
}

// WithLogger returns a copy of h that logs validation and execution.
func (h *MethodHandler) WithLogger(l logging.Logger) *MethodHandler {
	cp := *h
	if l == nil {
		l = logging.NoOpLogger{}
	}
	cp.logger = l
	return &cp
}

// Name returns the method this handler answers.
func (h *MethodHandler) Name() string { return h.name }

// Description returns the human-readable description.
func (h *MethodHandler) Description() string { return h.description }

// Parameters returns the params schema.
func (h *MethodHandler) Parameters() map[string]any { return h.parameters }

// ServeRPC implements core.Middleware.
func (h *MethodHandler) ServeRPC(ctx context.Context, req *core.Request, res *core.Response, next core.Next, end core.End) error {
	if req.Method != h.name {
		next(nil)
		return nil
	}

	start := time.Now()
	h.logger.Debug("method call start", "method", h.name, "id", req.ID)

	args := map[string]any{}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &args); err != nil {
			h.logger.Warn("method params rejected", "method", h.name, "error", err)
			end(core.ErrInvalidParams("params must be an object"))
			return nil
		}
	}

	if err := schema.Validate(args, h.parameters); err != nil {
		h.logger.Warn("method params rejected", "method", h.name, "error", err)
		end(core.ErrInvalidParams(err.Error()).WithData(err))
		return nil
	}

	result, err := h.fn(ctx, args)
	if err != nil {
		h.logger.Error("method call failed", "method", h.name, "error", err)
		end(err)
		return nil
	}

	if result == nil {
		result = core.NullResult
	}
	res.Result = result

	h.logger.Info("method call success", "method", h.name, "duration_ms", time.Since(start).Milliseconds())
	end(nil)
	return nil
}
