// Package testutil contains helper builders and utilities used across tests
// to reduce boilerplate when constructing requests, recording completion
// callbacks and composing throwaway middleware. They are not intended for
// production usage.
package testutil
