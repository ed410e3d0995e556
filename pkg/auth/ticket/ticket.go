// Package ticket issues and validates short-lived console tickets.
//
// A ticket is an HS256 JWT whose signing key is derived from the process
// secret, so resetting the secret revokes every outstanding ticket. Tickets
// let tooling hand out time-boxed console access without sharing the secret.
package ticket

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/rhuss/webconsole/pkg/auth"
)

// Issuer is the iss claim on every ticket.
const Issuer = "webconsole"

// DefaultTTL is the lifetime of a ticket when none is requested.
const DefaultTTL = 15 * time.Minute

// KeySource returns the current process secret.
type KeySource func() string

// Claims are the claims carried by a ticket.
type Claims struct {
	jwtlib.RegisteredClaims
}

// Service issues tickets and authenticates requests that present them as
// bearer credentials.
type Service struct {
	key KeySource
	ttl time.Duration
	now func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the default ticket lifetime.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New returns a ticket service keyed by key.
func New(key KeySource, opts ...Option) *Service {
	s := &Service{key: key, ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Issue signs a ticket for subject. A zero ttl uses the service default.
func (s *Service) Issue(subject string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, errors.New("ticket subject is required")
	}
	if ttl <= 0 {
		ttl = s.ttl
	}

	now := s.now()
	expires := now.Add(ttl)
	claims := Claims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   subject,
			ID:        uuid.NewString(),
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expires),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.signingKey())
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing ticket: %w", err)
	}
	return signed, expires, nil
}

// Verify parses and validates a ticket, returning its claims.
func (s *Service) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwtlib.ParseWithClaims(raw, claims, func(*jwtlib.Token) (interface{}, error) {
		return s.signingKey(), nil
	},
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer(Issuer),
		jwtlib.WithExpirationRequired(),
		jwtlib.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwtlib.ErrTokenExpired) {
			return nil, auth.ErrExpired
		}
		return nil, fmt.Errorf("invalid ticket: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("invalid ticket: missing subject")
	}
	return claims, nil
}

// Authenticate implements auth.Authenticator.
//
// Decisions:
//   - Abstain: no bearer credential, or one that is not shaped like a JWT
//   - No: a JWT that fails verification
//   - Yes: a valid ticket
func (s *Service) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if strings.Count(raw, ".") != 2 {
		return auth.AuthResult{Decision: auth.Abstain}
	}

	claims, err := s.Verify(raw)
	if err != nil {
		slog.Debug("ticket validation failed", "error", err)
		return auth.AuthResult{Decision: auth.No, Err: err}
	}

	return auth.AuthResult{
		Decision: auth.Yes,
		Identity: &auth.Identity{
			Subject:  claims.Subject,
			Method:   "ticket",
			Metadata: map[string]string{"ticket_id": claims.ID},
		},
	}
}

// signingKey derives the HMAC key from the current secret.
func (s *Service) signingKey() []byte {
	mac := hmac.New(sha256.New, []byte(s.key()))
	mac.Write([]byte("webconsole ticket"))
	return mac.Sum(nil)
}
