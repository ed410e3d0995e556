package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rhuss/webconsole/pkg/auth/ticket"
)

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "webconsole.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
	old := configPath
	configPath = path
	t.Cleanup(func() { configPath = old })
}

func TestConfiguredToken(t *testing.T) {
	writeConfig(t, "console:\n  secret: from-config\n")

	got, err := configuredToken()
	if err != nil {
		t.Fatalf("configuredToken() error: %v", err)
	}
	if got != "from-config" {
		t.Errorf("token = %q", got)
	}
}

func TestConfiguredToken_TokenFile(t *testing.T) {
	tokenPath := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(tokenPath, []byte("written-by-server\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	writeConfig(t, "console:\n  token_file: "+tokenPath+"\n")

	got, err := configuredToken()
	if err != nil {
		t.Fatalf("configuredToken() error: %v", err)
	}
	if got != "written-by-server" {
		t.Errorf("token = %q", got)
	}
}

func TestConfiguredToken_Unknown(t *testing.T) {
	writeConfig(t, "server:\n  port: 8081\n")

	if _, err := configuredToken(); err == nil {
		t.Error("expected error when the token is process generated")
	}
}

func TestTicketCommand(t *testing.T) {
	writeConfig(t, "console:\n  secret: ticket-secret\n")

	var out, errOut bytes.Buffer
	ticketCmd.SetOut(&out)
	ticketCmd.SetErr(&errOut)
	ticketSubject = "tester"
	ticketTTL = ticket.DefaultTTL

	if err := ticketCmd.RunE(ticketCmd, nil); err != nil {
		t.Fatalf("ticket RunE error: %v", err)
	}

	raw := strings.TrimSpace(out.String())
	claims, err := ticket.New(func() string { return "ticket-secret" }).Verify(raw)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "tester" {
		t.Errorf("subject = %q", claims.Subject)
	}
	if !strings.Contains(errOut.String(), "expires") {
		t.Errorf("stderr = %q", errOut.String())
	}
}
