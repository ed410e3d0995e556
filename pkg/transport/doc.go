// Package transport provides the HTTP plumbing shared by every surface of
// the web console: the console endpoint, the history API and the MCP server.
//
// # Middleware
//
// Middleware wraps an http.Handler. Built-in middleware provides panic
// recovery, request ID assignment (X-Request-ID) and structured access
// logging via log/slog. Chain composes them so the first middleware is the
// outermost wrapper.
//
// # Errors
//
// Non-console surfaces report failures as JSON bodies of the form
// {"error":{"type":...,"message":...}}. The console endpoint itself never
// uses them: evaluation failures are part of the evaluation result.
//
// # In-flight evaluations
//
// InFlightRegistry tracks the cancel functions of running evaluations so an
// operator can interrupt a runaway snippet from a second request.
package transport
