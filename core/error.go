package core

import (
	"errors"
	"fmt"
)

// Standard JSON-RPC error codes plus the rate-limit code used by
// middleware.RateLimit.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603
	CodeLimitExceeded  = -32005
)

// Error is the error object carried by a finalized Response. It implements
// error so middleware can pass it to End directly and callers can match it
// with errors.As.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// NewError creates an Error with the given code and message.
func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Error returns the message.
func (e *Error) Error() string { return e.Message }

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data any) *Error {
	cp := *e
	cp.Data = data
	return &cp
}

// ErrMethodNotFound reports an unknown method.
func ErrMethodNotFound(method string) *Error {
	return &Error{Code: CodeMethodNotFound, Message: fmt.Sprintf("method not found: %s", method)}
}

// ErrInvalidParams reports params that could not be decoded.
func ErrInvalidParams(detail string) *Error {
	if detail == "" {
		return &Error{Code: CodeInvalidParams, Message: "invalid params"}
	}
	return &Error{Code: CodeInvalidParams, Message: "invalid params: " + detail}
}

// ErrInternal wraps an arbitrary failure as an internal error.
func ErrInternal(err error) *Error {
	return &Error{Code: CodeInternal, Message: err.Error()}
}

// ToError serializes err for the response. An *Error anywhere in the chain is
// used as-is; any other error becomes CodeInternal with err's message.
func ToError(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return ErrInternal(err)
}
