package testutil

import (
	"encoding/json"

	"github.com/hupe1980/rpcmesh/core"
)

// RequestBuilder provides a fluent helper for constructing requests in tests.
// Example:
//
//	req := NewRequestBuilder().ID(1).Method("hello").Params(map[string]any{"a": 1}).Build()
//
// Chain only the parts you need; the default is {id: 1, jsonrpc: "2.0", method: "hello"}.
type RequestBuilder struct {
	id      any
	version string
	method  string
	params  json.RawMessage
	meta    map[string]any
}

// NewRequestBuilder creates a builder with the default hello request.
func NewRequestBuilder() *RequestBuilder {
	return &RequestBuilder{id: 1, version: core.Version, method: "hello"}
}

// ID sets the request ID (chainable).
func (b *RequestBuilder) ID(id any) *RequestBuilder { b.id = id; return b }

// Version overrides the protocol-version tag (chainable).
func (b *RequestBuilder) Version(v string) *RequestBuilder { b.version = v; return b }

// Method sets the method name (chainable).
func (b *RequestBuilder) Method(m string) *RequestBuilder { b.method = m; return b }

// Params marshals v as the request params (chainable). It panics on
// unmarshalable input, which is a test bug.
func (b *RequestBuilder) Params(v any) *RequestBuilder {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	b.params = raw
	return b
}

// Meta attaches a middleware value (chainable).
func (b *RequestBuilder) Meta(key string, v any) *RequestBuilder {
	if b.meta == nil {
		b.meta = map[string]any{}
	}
	b.meta[key] = v
	return b
}

// Build returns a fresh *core.Request.
func (b *RequestBuilder) Build() *core.Request {
	req := &core.Request{JSONRPC: b.version, ID: b.id, Method: b.method, Params: b.params}
	for k, v := range b.meta {
		req.Set(k, v)
	}
	return req
}
