// Package auth provides pluggable authentication for the web console.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default decides when
// all authenticators abstain.
//
// The console endpoint consults the chain directly and treats anything but
// Yes as "pass the request through". The rejecting Middleware in this
// package guards the auxiliary surfaces (history API, MCP) where a failed
// check must end in 401.
package auth
