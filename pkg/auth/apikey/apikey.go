// Package apikey authenticates operators and tooling that call the console
// with a long-lived bearer key instead of the per-process token.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/rhuss/webconsole/pkg/auth"
)

// RawKeyEntry is the configuration format for API keys.
type RawKeyEntry struct {
	Key     string
	Subject string
}

type keyEntry struct {
	hash    [32]byte
	subject string
}

// Authenticator validates bearer keys against a static key store. Keys are
// hashed on construction and plaintext keys are not retained.
type Authenticator struct {
	keys []keyEntry
}

// New creates an API key authenticator. Entries with an empty key are skipped.
func New(entries []RawKeyEntry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		if e.Key == "" {
			continue
		}
		subject := e.Subject
		if subject == "" {
			subject = "apikey"
		}
		a.keys = append(a.keys, keyEntry{
			hash:    sha256.Sum256([]byte(e.Key)),
			subject: subject,
		})
	}
	return a
}

// Len returns the number of configured keys.
func (a *Authenticator) Len() int { return len(a.keys) }

// Authenticate implements auth.Authenticator.
//
// Decisions:
//   - Abstain: no Authorization header, or not a Bearer credential
//   - No: Bearer credential present but unknown
//   - Yes: Bearer credential matches a configured key
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	key, ok := bearer(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if key == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	sum := sha256.Sum256([]byte(key))

	// Every entry is compared so the match position does not leak.
	match := -1
	for i, entry := range a.keys {
		if subtle.ConstantTimeCompare(sum[:], entry.hash[:]) == 1 && match < 0 {
			match = i
		}
	}
	if match < 0 {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{Subject: a.keys[match].subject, Method: "apikey"},
	}
}

func bearer(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer ")), true
}
