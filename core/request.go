package core

import "encoding/json"

// Version is the protocol-version tag used when a caller does not set one.
const Version = "2.0"

// NullResult is a non-absent result that serializes as JSON null. A nil
// Result means "no result"; middleware answering with null must set this.
var NullResult = json.RawMessage("null")

// Request is the envelope handed to every middleware of a call.
//
// The engine never mutates a Request; middleware may (for example to remap
// the ID). Meta carries values middleware attach for each other and is never
// serialized.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Meta    map[string]any  `json:"-"`
}

// NewRequest builds a request with the default version tag.
func NewRequest(id any, method string, params any) (*Request, error) {
	req := &Request{JSONRPC: Version, ID: id, Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return nil, err
		}
		req.Params = raw
	}
	return req, nil
}

// Set stores a middleware-attached value on the request.
func (r *Request) Set(key string, v any) {
	if r.Meta == nil {
		r.Meta = map[string]any{}
	}
	r.Meta[key] = v
}

// Get returns a middleware-attached value.
func (r *Request) Get(key string) (any, bool) {
	v, ok := r.Meta[key]
	return v, ok
}

// DecodeParams unmarshals Params into v.
func (r *Request) DecodeParams(v any) error {
	if len(r.Params) == 0 {
		return ErrInvalidParams("missing params")
	}
	if err := json.Unmarshal(r.Params, v); err != nil {
		return ErrInvalidParams(err.Error())
	}
	return nil
}

// Response is created once per Handle call and shared by pointer with every
// middleware of that call, including those of nested engines.
//
// Exactly one of Result or Error is present once the call is finalized.
// Middleware may set both transiently; the engine resolves it at completion.
type Response struct {
	JSONRPC string         `json:"jsonrpc"`
	ID      any            `json:"id"`
	Result  any            `json:"result,omitempty"`
	Error   *Error         `json:"error,omitempty"`
	Meta    map[string]any `json:"-"`
}

// NewResponse seeds a response shell from the request.
func NewResponse(req *Request) *Response {
	return &Response{JSONRPC: req.JSONRPC, ID: req.ID}
}

// HasResult reports whether a result is present.
func (r *Response) HasResult() bool { return r.Result != nil }

// Set stores a middleware-attached value on the response.
func (r *Response) Set(key string, v any) {
	if r.Meta == nil {
		r.Meta = map[string]any{}
	}
	r.Meta[key] = v
}

// Get returns a middleware-attached value.
func (r *Response) Get(key string) (any, bool) {
	v, ok := r.Meta[key]
	return v, ok
}
