// Package console provides the web console endpoint: net/http middleware
// that lets an authenticated POST evaluate code in a persistent session
// living inside the host application.
//
// Every request first runs through the wrapped handler. When the request is
// a POST whose credentials authenticate (normally a "token" parameter equal
// to the process secret), the wrapped handler's response is discarded and
// replaced by a JSON body:
//
//	{"prompt": "[3] js> a * 8", "result": "=> 32\n"}
//
// Anything else passes through untouched, so mounting the endpoint never
// changes the behaviour of the host application for ordinary traffic.
//
// The session is created on first use and shared by all authenticated
// requests. Evaluations are serialized; waiting honors the request context.
package console
