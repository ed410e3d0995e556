package apikey

import (
	"context"
	"net/http"
	"testing"

	"github.com/rhuss/webconsole/pkg/auth"
)

func newTestAuth() *Authenticator {
	return New([]RawKeyEntry{
		{Key: "wc-test-key-1", Subject: "alice"},
		{Key: "wc-test-key-2", Subject: "bob"},
		{Key: "wc-test-key-3"},
		{Key: "", Subject: "ignored"},
	})
}

func TestNew_SkipsEmptyKeys(t *testing.T) {
	if got := newTestAuth().Len(); got != 3 {
		t.Errorf("Len() = %d, want 3", got)
	}
}

func TestAuthenticate(t *testing.T) {
	a := newTestAuth()

	tests := []struct {
		name        string
		header      string
		want        auth.AuthDecision
		wantSubject string
	}{
		{"valid first key", "Bearer wc-test-key-1", auth.Yes, "alice"},
		{"valid second key", "Bearer wc-test-key-2", auth.Yes, "bob"},
		{"default subject", "Bearer wc-test-key-3", auth.Yes, "apikey"},
		{"unknown key", "Bearer wc-wrong-key", auth.No, ""},
		{"empty bearer", "Bearer ", auth.No, ""},
		{"no header", "", auth.Abstain, ""},
		{"basic credentials", "Basic dXNlcjpwYXNz", auth.Abstain, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := http.NewRequest("POST", "/console", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}

			result := a.Authenticate(context.Background(), r)

			if result.Decision != tt.want {
				t.Fatalf("Decision = %v, want %v", result.Decision, tt.want)
			}
			if tt.want != auth.Yes {
				return
			}
			if result.Identity.Subject != tt.wantSubject {
				t.Errorf("Subject = %q, want %q", result.Identity.Subject, tt.wantSubject)
			}
			if result.Identity.Method != "apikey" {
				t.Errorf("Method = %q, want apikey", result.Identity.Method)
			}
		})
	}
}
