package console

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/rhuss/webconsole/pkg/auth"
	"github.com/rhuss/webconsole/pkg/auth/token"
	"github.com/rhuss/webconsole/pkg/debug"
	"github.com/rhuss/webconsole/pkg/observability"
	"github.com/rhuss/webconsole/pkg/repl"
	"github.com/rhuss/webconsole/pkg/storage"
	"github.com/rhuss/webconsole/pkg/transport"
)

// Request parameter names.
const (
	ParamQuery = "query"
	ParamToken = token.DefaultParam
)

// DefaultMaxBodySize bounds the request body the endpoint buffers.
const DefaultMaxBodySize int64 = 1 << 20

// Endpoint is the console middleware. Create it with New or Middleware.
type Endpoint struct {
	next http.Handler

	secret         *token.Secret
	authenticators []auth.Authenticator
	chain          *auth.AuthChain
	controlChain   *auth.AuthChain

	sessionCfg repl.Config
	sessions   repl.Store
	sem        *semaphore.Weighted
	inflight   *transport.InFlightRegistry

	history     storage.HistoryStore
	maxBodySize int64
	logger      *slog.Logger

	mu          sync.Mutex
	lastRequest *repl.RequestInfo
}

// Option configures an Endpoint.
type Option func(*Endpoint)

// WithSecret uses secret instead of a freshly generated one.
func WithSecret(secret *token.Secret) Option {
	return func(e *Endpoint) { e.secret = secret }
}

// WithAuthenticators adds authenticators consulted after the token check.
// Without it only the token parameter authenticates a request.
func WithAuthenticators(authenticators ...auth.Authenticator) Option {
	return func(e *Endpoint) { e.authenticators = append(e.authenticators, authenticators...) }
}

// WithSessionConfig sets the configuration used when the session is created.
func WithSessionConfig(cfg repl.Config) Option {
	return func(e *Endpoint) { e.sessionCfg = cfg }
}

// WithHistory records every evaluation in store.
func WithHistory(store storage.HistoryStore) Option {
	return func(e *Endpoint) { e.history = store }
}

// WithMaxBodySize bounds the buffered request body. Larger bodies are
// passed through unauthenticated.
func WithMaxBodySize(n int64) Option {
	return func(e *Endpoint) {
		if n > 0 {
			e.maxBodySize = n
		}
	}
}

// WithLogger sets the logger for plumbing failures.
func WithLogger(l *slog.Logger) Option {
	return func(e *Endpoint) {
		if l != nil {
			e.logger = l
		}
	}
}

// New wraps next with the console endpoint.
func New(next http.Handler, opts ...Option) *Endpoint {
	e := &Endpoint{
		next:        next,
		sessionCfg:  repl.DefaultConfig(),
		sem:         semaphore.NewWeighted(1),
		inflight:    transport.NewInFlightRegistry(),
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.secret == nil {
		e.secret = token.New()
	}
	// The console itself only honours the token parameter; the header is
	// reserved for the control surfaces.
	e.chain = auth.NewChain(append([]auth.Authenticator{token.NewAuthenticator(e.secret)}, e.authenticators...)...)
	e.controlChain = auth.NewChain(append([]auth.Authenticator{
		token.NewAuthenticator(e.secret, token.WithHeader(token.DefaultHeader)),
	}, e.authenticators...)...)
	e.sessions.OnCreate = func(s *repl.Session) {
		observability.SessionsCreatedTotal.Inc()
		e.logger.Info("console session created", "session_id", s.ID())
	}

	return e
}

// Middleware returns the endpoint as a middleware constructor.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return New(next, opts...)
	}
}

// Token returns the current secret for out-of-band distribution.
func (e *Endpoint) Token() string { return e.secret.Value() }

// ResetToken regenerates the secret and returns the new value. Tickets
// signed with the old secret stop validating.
func (e *Endpoint) ResetToken() string {
	v := e.secret.Reset()
	e.logger.Info("console token reset", "token", debug.Mask(v))
	return v
}

// Secret returns the secret shared with other authenticators.
func (e *Endpoint) Secret() *token.Secret { return e.secret }

// Chain returns the authenticator chain the endpoint evaluates requests with.
func (e *Endpoint) Chain() *auth.AuthChain { return e.chain }

// ControlChain returns the chain for guarding the endpoint's companion
// surfaces with auth.Middleware. It also accepts the secret in the
// token.DefaultHeader header.
func (e *Endpoint) ControlChain() *auth.AuthChain { return e.controlChain }

// Session returns the shared session, creating it if absent. The session
// is not safe for concurrent use; evaluate through Evaluate or inspect it
// inside WithSession.
func (e *Endpoint) Session() (*repl.Session, error) {
	return e.sessions.Get(e.sessionCfg)
}

// WithSession runs fn with exclusive access to the shared session.
func (e *Endpoint) WithSession(ctx context.Context, fn func(*repl.Session) error) error {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer e.sem.Release(1)

	s, err := e.Session()
	if err != nil {
		return err
	}
	return fn(s)
}

// ResetSession drops the shared session. The next evaluation starts fresh;
// an evaluation already running finishes on the old session.
func (e *Endpoint) ResetSession() {
	e.sessions.Reset()
	e.logger.Info("console session reset")
}

// LastRequest returns a snapshot of the last authenticated host request.
func (e *Endpoint) LastRequest() *repl.RequestInfo {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.lastRequest == nil {
		return nil
	}
	cp := *e.lastRequest
	return &cp
}

// Running returns the IDs of evaluations that are running or waiting.
func (e *Endpoint) Running() []string { return e.inflight.IDs() }

// Interrupt cancels the evaluation with the given ID.
func (e *Endpoint) Interrupt(id string) bool { return e.inflight.Cancel(id) }

// InterruptAll cancels every running or waiting evaluation.
func (e *Endpoint) InterruptAll() int { return e.inflight.CancelAll() }

func (e *Endpoint) setLastRequest(info repl.RequestInfo) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastRequest = &info
}
