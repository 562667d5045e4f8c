// Package core provides the foundational domain types and contracts used by
// rpcmesh. It defines:
//
//   - Request and Response (JSON-RPC shaped envelopes shared by reference)
//   - Error (the wire error object plus the standard JSON-RPC codes)
//   - Middleware (the unit of work an engine sequences) with its Next/End
//     continuations and deferred ReturnHandler callbacks
//   - Engine (the contract implemented by package engine)
//
// Implementation concerns (stack execution, nesting, finalization) live in
// package engine. The types here are deliberately small so middleware can be
// written against core alone.
package core
