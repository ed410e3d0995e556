// Package token holds the process-wide console secret and the authenticator
// that checks it against the "token" request parameter.
//
// The secret is generated once per process and compared in constant time.
// An optional TTL makes a secret stop matching until it is reset.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/rhuss/webconsole/pkg/auth"
)

// secretBytes is the amount of randomness in a generated secret.
const secretBytes = 20

// Secret is the shared console secret. All methods are safe for concurrent use.
type Secret struct {
	mu       sync.RWMutex
	value    string
	hash     [32]byte
	issuedAt time.Time
	ttl      time.Duration

	now func() time.Time
}

// Option configures a Secret.
type Option func(*Secret)

// WithTTL makes the secret expire ttl after it was issued. Zero means never.
func WithTTL(ttl time.Duration) Option {
	return func(s *Secret) { s.ttl = ttl }
}

// WithValue uses a fixed secret instead of a generated one.
func WithValue(v string) Option {
	return func(s *Secret) { s.set(v) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Secret) { s.now = now }
}

// New returns a secret, generated unless WithValue is given.
func New(opts ...Option) *Secret {
	s := &Secret{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if s.value == "" {
		s.set(generate())
	} else {
		s.issuedAt = s.now()
	}
	return s
}

// Value returns the current secret for out-of-band distribution.
func (s *Secret) Value() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// ExpiresAt returns when the secret stops matching, or the zero time.
func (s *Secret) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.ttl <= 0 {
		return time.Time{}
	}
	return s.issuedAt.Add(s.ttl)
}

// Reset generates a new secret and returns it.
func (s *Secret) Reset() string {
	v := generate()
	s.mu.Lock()
	s.set(v)
	s.mu.Unlock()
	return v
}

// Match reports whether candidate equals the secret and the secret has not
// expired. The comparison is constant-time over SHA-256 digests, so neither
// content nor length leaks through timing.
func (s *Secret) Match(candidate string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.value == "" || candidate == "" {
		return false
	}
	if s.ttl > 0 && !s.now().Before(s.issuedAt.Add(s.ttl)) {
		return false
	}
	h := sha256.Sum256([]byte(candidate))
	return subtle.ConstantTimeCompare(h[:], s.hash[:]) == 1
}

// Expired reports whether the secret's TTL has elapsed.
func (s *Secret) Expired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ttl > 0 && !s.now().Before(s.issuedAt.Add(s.ttl))
}

// set must be called with mu held or before the secret is shared.
func (s *Secret) set(v string) {
	s.value = v
	s.hash = sha256.Sum256([]byte(v))
	if s.now != nil {
		s.issuedAt = s.now()
	}
}

func generate() string {
	b := make([]byte, secretBytes)
	if _, err := rand.Read(b); err != nil {
		panic("token: reading random bytes: " + err.Error())
	}
	return hex.EncodeToString(b)
}

// DefaultParam is the request parameter carrying the secret.
const DefaultParam = "token"

// DefaultHeader is the header control surfaces accept as an alternative to
// the parameter. See WithHeader.
const DefaultHeader = "X-Console-Token"

// Authenticator checks the console secret carried in a request parameter
// and, when enabled, a header.
//
// Decisions:
//   - Abstain: no token present
//   - No: token present but wrong or expired
//   - Yes: token matches
type Authenticator struct {
	secret *Secret
	param  string
	header string
}

// AuthenticatorOption configures an Authenticator.
type AuthenticatorOption func(*Authenticator)

// WithHeader also accepts the secret in the named header. The header wins
// over the parameter when both are present.
func WithHeader(name string) AuthenticatorOption {
	return func(a *Authenticator) { a.header = name }
}

// NewAuthenticator returns an authenticator for secret that reads the
// DefaultParam parameter only, unless options say otherwise.
func NewAuthenticator(secret *Secret, opts ...AuthenticatorOption) *Authenticator {
	a := &Authenticator{secret: secret, param: DefaultParam}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Authenticate implements auth.Authenticator. It reads r.Form when the caller
// already parsed it and otherwise only the URL query, so the body stays
// untouched.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	var candidate string
	if a.header != "" {
		candidate = r.Header.Get(a.header)
	}
	if candidate == "" {
		if r.Form != nil {
			candidate = r.Form.Get(a.param)
		} else {
			candidate = r.URL.Query().Get(a.param)
		}
	}
	if candidate == "" {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	if a.secret.Match(candidate) {
		return auth.AuthResult{
			Decision: auth.Yes,
			Identity: &auth.Identity{Subject: "console", Method: "token"},
		}
	}

	err := auth.ErrInvalidToken
	if a.secret.Expired() {
		err = auth.ErrExpired
	}
	return auth.AuthResult{Decision: auth.No, Err: err}
}
