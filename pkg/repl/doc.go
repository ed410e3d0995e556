// Package repl implements the persistent interactive session behind the
// web console.
//
// A Session wraps a single goja JavaScript runtime. Globals defined by one
// evaluation remain visible to the next, so the session behaves like a
// read-eval-print loop that happens to be driven by HTTP requests. Each
// evaluation captures everything written through print, console.* and shell
// commands, followed by the formatted result ("=> value") or the exception
// text. Errors raised by evaluated code never surface as Go errors; they are
// part of the captured output.
//
// A Session is not safe for concurrent use. Callers serialize access (the
// console endpoint holds a semaphore around every evaluation).
package repl
