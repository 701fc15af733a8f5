// Package server implements the stdio bridge: newline-delimited JSON requests in, one JSON
// response line per request out.
//
// # Envelopes
//
// A request is a JSON object with a "command", an opaque "callId" and the command's parameters
// as further top-level keys. A response carries "status" ("ok" or "error"), the echoed "callId",
// and either the command's payload keys or a "message".
//
// # Dispatch
//
// [Server.Serve] reads one request per line and submits each to a [tasks.Pool], so requests run
// concurrently and responses may leave in any order. When the pool is at its cap the read loop
// blocks. Lines that do not parse are logged and dropped without a response.
//
// # Routing
//
// [Router] maps command names to [HandlerFunc]s wrapped in [Middleware], in the same shape as an
// HTTP mux. [Router.Dispatch] is the failure boundary: errors and panics become error responses.
// [Handlers] registers the full command set.
//
// # Output
//
// [Writer] serializes each response completely before taking its lock, then emits it with a
// single write, so concurrent lines never interleave.
package server
