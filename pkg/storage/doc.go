// Package storage defines the evaluation history store shared by the console
// endpoint, the history API and the MCP tools, together with its sentinel
// errors. Backends live in the memory and postgres subpackages.
package storage
