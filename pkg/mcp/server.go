// Package mcp exposes the console session as a Model Context Protocol
// server, so agents can evaluate code and read the history over the
// streamable HTTP transport.
package mcp

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/webconsole/pkg/console"
	"github.com/rhuss/webconsole/pkg/debug"
	"github.com/rhuss/webconsole/pkg/repl"
	"github.com/rhuss/webconsole/pkg/storage"
)

// Subject is recorded in the history for evaluations made over MCP.
const Subject = "mcp"

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 1000
)

// Console is the part of the console endpoint the tools use.
type Console interface {
	Evaluate(ctx context.Context, ev console.Evaluation) (repl.Result, error)
	WithSession(ctx context.Context, fn func(*repl.Session) error) error
}

// EvaluateInput is the argument of the evaluate tool.
type EvaluateInput struct {
	Code string `json:"code" jsonschema:"JavaScript to evaluate in the console session"`
}

// EvaluateOutput is the structured result of the evaluate tool.
type EvaluateOutput struct {
	Prompt string `json:"prompt"`
	Result string `json:"result"`
	Failed bool   `json:"failed"`
}

// HistoryInput is the argument of the history tool.
type HistoryInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of inputs to return, newest last"`
}

// HistoryOutput is the structured result of the history tool.
type HistoryOutput struct {
	Inputs []string `json:"inputs"`
}

// NewServer builds the MCP server. history may be nil, in which case the
// history tool reads the inputs remembered by the session.
func NewServer(c Console, history storage.HistoryStore, version string) *sdk.Server {
	server := sdk.NewServer(
		&sdk.Implementation{Name: "webconsole", Version: version},
		nil,
	)

	t := &tools{console: c, history: history}

	sdk.AddTool(server, &sdk.Tool{
		Name:        "evaluate",
		Description: "Evaluates JavaScript in the persistent web console session and returns the captured output followed by the result.",
	}, t.evaluate)

	sdk.AddTool(server, &sdk.Tool{
		Name:        "history",
		Description: "Returns the most recent console inputs, oldest first.",
	}, t.listHistory)

	return server
}

// Handler serves server over the streamable HTTP transport.
func Handler(server *sdk.Server) http.Handler {
	return sdk.NewStreamableHTTPHandler(func(*http.Request) *sdk.Server {
		return server
	}, nil)
}

type tools struct {
	console Console
	history storage.HistoryStore
}

func (t *tools) evaluate(ctx context.Context, _ *sdk.CallToolRequest, in EvaluateInput) (*sdk.CallToolResult, EvaluateOutput, error) {
	debug.Log("mcp", "evaluate", "code", debug.Truncate(in.Code, 200))

	res, err := t.console.Evaluate(ctx, console.Evaluation{Code: in.Code, Subject: Subject})
	if err != nil {
		return nil, EvaluateOutput{}, fmt.Errorf("evaluation did not start: %w", err)
	}

	out := EvaluateOutput{Prompt: res.Prompt, Result: res.Output, Failed: res.Failed}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: res.Output}},
		IsError: res.Failed,
	}, out, nil
}

func (t *tools) listHistory(ctx context.Context, _ *sdk.CallToolRequest, in HistoryInput) (*sdk.CallToolResult, HistoryOutput, error) {
	limit := in.Limit
	switch {
	case limit <= 0:
		limit = defaultHistoryLimit
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}

	inputs, err := t.inputs(ctx, limit)
	if err != nil {
		return nil, HistoryOutput{}, err
	}

	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: strings.Join(inputs, "\n")}},
	}, HistoryOutput{Inputs: inputs}, nil
}

// inputs returns up to limit inputs, oldest first.
func (t *tools) inputs(ctx context.Context, limit int) ([]string, error) {
	if t.history != nil {
		entries, err := t.history.List(ctx, storage.ListOptions{Limit: limit})
		if err != nil {
			return nil, fmt.Errorf("listing history: %w", err)
		}
		out := make([]string, 0, len(entries))
		for i := len(entries) - 1; i >= 0; i-- {
			out = append(out, entries[i].Query)
		}
		return out, nil
	}

	var out []string
	err := t.console.WithSession(ctx, func(s *repl.Session) error {
		h := s.History()
		if len(h) > limit {
			h = h[len(h)-limit:]
		}
		out = h
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading session history: %w", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}
