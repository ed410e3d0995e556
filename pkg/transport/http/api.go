package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/webconsole/pkg/auth"
	"github.com/rhuss/webconsole/pkg/debug"
	"github.com/rhuss/webconsole/pkg/observability"
	"github.com/rhuss/webconsole/pkg/repl"
	"github.com/rhuss/webconsole/pkg/storage"
	"github.com/rhuss/webconsole/pkg/transport"
)

// Console is the part of the console endpoint the control API drives.
type Console interface {
	Running() []string
	Interrupt(id string) bool
	InterruptAll() int
	ResetSession()
	WithSession(ctx context.Context, fn func(*repl.Session) error) error
}

// TicketIssuer signs short-lived console tickets.
type TicketIssuer interface {
	Issue(subject string, ttl time.Duration) (string, time.Time, error)
}

// API serves the console's companion endpoints: evaluation history,
// running evaluations, the session and ticket issuance. It does not
// authenticate; mount it behind auth.Middleware.
type API struct {
	console Console
	history storage.HistoryStore // nil when history is disabled
	tickets TicketIssuer         // nil when tickets are disabled
	mux     *http.ServeMux
}

// APIOption configures an API.
type APIOption func(*API)

// WithHistoryStore enables the history endpoints.
func WithHistoryStore(store storage.HistoryStore) APIOption {
	return func(a *API) { a.history = store }
}

// WithTicketIssuer enables ticket issuance.
func WithTicketIssuer(issuer TicketIssuer) APIOption {
	return func(a *API) { a.tickets = issuer }
}

// NewAPI creates the control API with all routes under prefix, e.g.
// "/console".
func NewAPI(console Console, prefix string, opts ...APIOption) *API {
	a := &API{
		console: console,
		mux:     http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(a)
	}

	p := strings.TrimSuffix(prefix, "/")
	a.mux.HandleFunc("GET "+p+"/history", a.handleListHistory)
	a.mux.HandleFunc("GET "+p+"/history/{id}", a.handleGetHistory)
	a.mux.HandleFunc("DELETE "+p+"/history", a.handleClearHistory)
	a.mux.HandleFunc("GET "+p+"/evaluations", a.handleListEvaluations)
	a.mux.HandleFunc("DELETE "+p+"/evaluations", a.handleCancelAll)
	a.mux.HandleFunc("DELETE "+p+"/evaluations/{id}", a.handleCancel)
	a.mux.HandleFunc("GET "+p+"/session", a.handleGetSession)
	a.mux.HandleFunc("POST "+p+"/session/reset", a.handleResetSession)
	a.mux.HandleFunc("POST "+p+"/tickets", a.handleIssueTicket)

	return a
}

// ServeHTTP implements http.Handler.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.mux.ServeHTTP(w, r)
}

type historyList struct {
	Object string           `json:"object"`
	Data   []*storage.Entry `json:"data"`
}

// handleListHistory handles GET /history.
func (a *API) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if !a.requireHistory(w) {
		return
	}

	opts, err := parseListOptions(r)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, transport.ErrorTypeInvalidRequest, err.Error())
		return
	}

	entries, err := a.history.List(r.Context(), opts)
	if err != nil {
		a.storeError(w, "list", err)
		return
	}
	if entries == nil {
		entries = []*storage.Entry{}
	}
	_ = transport.WriteJSON(w, http.StatusOK, historyList{Object: "list", Data: entries})
}

// handleGetHistory handles GET /history/{id}.
func (a *API) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if !a.requireHistory(w) {
		return
	}

	id := r.PathValue("id")
	entry, err := a.history.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			transport.WriteError(w, http.StatusNotFound, transport.ErrorTypeNotFound, "history entry "+id+" not found")
			return
		}
		a.storeError(w, "get", err)
		return
	}
	_ = transport.WriteJSON(w, http.StatusOK, entry)
}

// handleClearHistory handles DELETE /history.
func (a *API) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if !a.requireHistory(w) {
		return
	}

	n, err := a.history.Clear(r.Context())
	if err != nil {
		a.storeError(w, "clear", err)
		return
	}
	debug.Log("console", "history cleared", "deleted", n, "subject", auth.SubjectFromContext(r.Context()))
	_ = transport.WriteJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

// handleListEvaluations handles GET /evaluations.
func (a *API) handleListEvaluations(w http.ResponseWriter, r *http.Request) {
	_ = transport.WriteJSON(w, http.StatusOK, map[string][]string{"running": a.console.Running()})
}

// handleCancel handles DELETE /evaluations/{id}.
func (a *API) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !a.console.Interrupt(id) {
		transport.WriteError(w, http.StatusNotFound, transport.ErrorTypeNotFound, "evaluation "+id+" is not running")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCancelAll handles DELETE /evaluations.
func (a *API) handleCancelAll(w http.ResponseWriter, r *http.Request) {
	n := a.console.InterruptAll()
	_ = transport.WriteJSON(w, http.StatusOK, map[string]int{"cancelled": n})
}

type sessionInfo struct {
	ID        string    `json:"id"`
	Line      int       `json:"line"`
	Inputs    int       `json:"inputs"`
	CreatedAt time.Time `json:"created_at"`
}

// handleGetSession handles GET /session. It waits for a running
// evaluation to finish.
func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	var info sessionInfo
	err := a.console.WithSession(r.Context(), func(s *repl.Session) error {
		info = sessionInfo{
			ID:        s.ID(),
			Line:      s.Line(),
			Inputs:    len(s.History()),
			CreatedAt: s.CreatedAt(),
		}
		return nil
	})
	if err != nil {
		transport.WriteError(w, http.StatusServiceUnavailable, transport.ErrorTypeUnavailable, "session unavailable: "+err.Error())
		return
	}
	_ = transport.WriteJSON(w, http.StatusOK, info)
}

// handleResetSession handles POST /session/reset.
func (a *API) handleResetSession(w http.ResponseWriter, r *http.Request) {
	a.console.ResetSession()
	w.WriteHeader(http.StatusNoContent)
}

type ticketResponse struct {
	Ticket    string    `json:"ticket"`
	Subject   string    `json:"subject"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleIssueTicket handles POST /tickets. The ticket is issued to the
// authenticated subject; an optional "ttl" query parameter shortens it.
func (a *API) handleIssueTicket(w http.ResponseWriter, r *http.Request) {
	if a.tickets == nil {
		transport.WriteError(w, http.StatusNotImplemented, transport.ErrorTypeUnavailable, "ticket issuance is not enabled")
		return
	}

	subject := auth.SubjectFromContext(r.Context())
	if subject == "" {
		transport.WriteError(w, http.StatusUnauthorized, transport.ErrorTypeUnauthenticated, "authentication required")
		return
	}

	var ttl time.Duration
	if v := r.URL.Query().Get("ttl"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			transport.WriteError(w, http.StatusBadRequest, transport.ErrorTypeInvalidRequest, "ttl must be a positive duration")
			return
		}
		ttl = d
	}

	raw, expires, err := a.tickets.Issue(subject, ttl)
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, transport.ErrorTypeServer, err.Error())
		return
	}
	_ = transport.WriteJSON(w, http.StatusCreated, ticketResponse{Ticket: raw, Subject: subject, ExpiresAt: expires})
}

// requireHistory answers 501 and returns false when history is disabled.
func (a *API) requireHistory(w http.ResponseWriter) bool {
	if a.history == nil {
		transport.WriteError(w, http.StatusNotImplemented, transport.ErrorTypeUnavailable, "history is not available (no store configured)")
		return false
	}
	return true
}

// storeError maps a history store failure to a JSON error response.
func (a *API) storeError(w http.ResponseWriter, op string, err error) {
	observability.HistoryErrorsTotal.WithLabelValues(op).Inc()
	transport.WriteError(w, http.StatusInternalServerError, transport.ErrorTypeServer, err.Error())
}

// parseListOptions extracts history filters from the query string.
func parseListOptions(r *http.Request) (storage.ListOptions, error) {
	q := r.URL.Query()
	opts := storage.ListOptions{
		SessionID: q.Get("session_id"),
		Subject:   q.Get("subject"),
	}

	if limitStr := q.Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return opts, errors.New("limit must be a positive integer")
		}
		opts.Limit = limit
	}

	return opts.Normalize(), nil
}
