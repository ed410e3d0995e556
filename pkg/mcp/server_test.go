package mcp

import (
	"context"
	"net/http"
	"strings"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/rhuss/webconsole/pkg/console"
	"github.com/rhuss/webconsole/pkg/storage"
	"github.com/rhuss/webconsole/pkg/storage/memory"
)

// connect runs the server over in-memory transports and returns a client
// session.
func connect(t *testing.T, c Console, history storage.HistoryStore) *sdk.ClientSession {
	t.Helper()

	server := NewServer(c, history, "test")
	serverTransport, clientTransport := sdk.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		_ = server.Run(ctx, serverTransport)
	}()

	client := sdk.NewClient(&sdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callText(t *testing.T, session *sdk.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	res, err := session.CallTool(context.Background(), &sdk.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) error: %v", name, err)
	}
	var parts []string
	for _, c := range res.Content {
		if tc, ok := c.(*sdk.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n"), res.IsError
}

func TestTools_Listed(t *testing.T) {
	session := connect(t, console.New(http.NotFoundHandler()), nil)

	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	names := map[string]bool{}
	for _, tool := range res.Tools {
		names[tool.Name] = true
	}
	if !names["evaluate"] || !names["history"] {
		t.Errorf("tools = %v, want evaluate and history", names)
	}
}

func TestEvaluate_SharesSession(t *testing.T) {
	session := connect(t, console.New(http.NotFoundHandler()), nil)

	if _, failed := callText(t, session, "evaluate", map[string]any{"code": "a = 4"}); failed {
		t.Fatal("first evaluation failed")
	}
	text, failed := callText(t, session, "evaluate", map[string]any{"code": "a * 8"})
	if failed || text != "=> 32\n" {
		t.Errorf("result = %q (failed %v), want => 32", text, failed)
	}
}

func TestEvaluate_Error(t *testing.T) {
	session := connect(t, console.New(http.NotFoundHandler()), nil)

	text, failed := callText(t, session, "evaluate", map[string]any{"code": "unknown_method()"})
	if !failed {
		t.Error("IsError = false, want true")
	}
	if !strings.Contains(text, "Error:") {
		t.Errorf("result = %q, want error text", text)
	}
}

func TestHistory_FromSession(t *testing.T) {
	session := connect(t, console.New(http.NotFoundHandler()), nil)

	for _, code := range []string{"1", "2", "3"} {
		callText(t, session, "evaluate", map[string]any{"code": code})
	}

	text, _ := callText(t, session, "history", map[string]any{"limit": 2})
	if text != "2\n3" {
		t.Errorf("history = %q, want last two inputs", text)
	}
}

func TestHistory_FromStore(t *testing.T) {
	store := memory.New(10)
	c := console.New(http.NotFoundHandler(), console.WithHistory(store))
	session := connect(t, c, store)

	for _, code := range []string{"x = 1", "x + 1"} {
		callText(t, session, "evaluate", map[string]any{"code": code})
	}

	text, _ := callText(t, session, "history", map[string]any{})
	if text != "x = 1\nx + 1" {
		t.Errorf("history = %q", text)
	}

	entries, err := store.List(context.Background(), storage.ListOptions{})
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	for _, e := range entries {
		if e.Subject != Subject {
			t.Errorf("entry subject = %q, want %q", e.Subject, Subject)
		}
	}
}
