package console

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rhuss/webconsole/pkg/auth"
	"github.com/rhuss/webconsole/pkg/debug"
	"github.com/rhuss/webconsole/pkg/observability"
	"github.com/rhuss/webconsole/pkg/repl"
	"github.com/rhuss/webconsole/pkg/transport"
)

// redactedHeaders never reach evaluated code.
var redactedHeaders = map[string]bool{
	"Authorization":   true,
	"Cookie":          true,
	"X-Console-Token": true,
}

// response is the body of an answered console request.
type response struct {
	Prompt string `json:"prompt"`
	Result string `json:"result"`
}

// ServeHTTP implements http.Handler.
func (e *Endpoint) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		e.next.ServeHTTP(w, r)
		return
	}

	params, err := e.readParams(r)
	if err != nil {
		e.logger.Warn("console: ignoring unreadable request", "path", r.URL.Path, "error", err)
		e.next.ServeHTTP(w, r)
		return
	}

	identity, ok := e.authenticate(r, params)
	if !ok {
		e.next.ServeHTTP(w, r)
		return
	}

	// The host still sees the request; only its response is replaced.
	e.next.ServeHTTP(newDiscardWriter(), r)

	info := requestInfo(r, params)
	res, err := e.Evaluate(r.Context(), Evaluation{
		ID:      info.RequestID,
		Code:    params.Get(ParamQuery),
		Subject: identity.Subject,
		Request: &info,
	})
	if err != nil {
		debug.Log("console", "evaluation not started", "request_id", info.RequestID, "error", err)
		res = repl.Result{Output: "Error: evaluation interrupted before it started: " + err.Error() + "\n", Failed: true}
	}

	writeResult(w, res)
}

// authenticate runs the chain against a copy of r whose Form holds the
// already parsed parameters.
func (e *Endpoint) authenticate(r *http.Request, params url.Values) (*auth.Identity, bool) {
	ar := r.WithContext(r.Context())
	ar.Form = params

	result := e.chain.Authenticate(r.Context(), ar)
	observability.AuthDecisionsTotal.WithLabelValues("console", result.Decision.String()).Inc()

	if result.Decision != auth.Yes || result.Identity == nil {
		if result.Err != nil {
			debug.Log("console", "authentication rejected", "path", r.URL.Path, "error", result.Err)
		}
		return nil, false
	}
	return result.Identity, true
}

func requestInfo(r *http.Request, params url.Values) repl.RequestInfo {
	headers := make(map[string]string, len(r.Header))
	for name, values := range r.Header {
		if redactedHeaders[name] {
			headers[name] = "[redacted]"
			continue
		}
		headers[name] = strings.Join(values, ", ")
	}

	flat := make(map[string]string, len(params))
	for name := range params {
		if name == ParamToken {
			continue
		}
		flat[name] = params.Get(name)
	}

	id := transport.RequestIDFromContext(r.Context())
	if id == "" {
		id = r.Header.Get(transport.RequestIDHeader)
	}

	return repl.RequestInfo{
		Method:     r.Method,
		Path:       r.URL.Path,
		Query:      r.URL.RawQuery,
		RemoteAddr: r.RemoteAddr,
		Host:       r.Host,
		Headers:    headers,
		Params:     flat,
		RequestID:  id,
		ReceivedAt: time.Now().UTC(),
	}
}

func writeResult(w http.ResponseWriter, res repl.Result) {
	body, err := json.Marshal(response{Prompt: res.Prompt, Result: res.Output})
	if err != nil {
		transport.WriteError(w, http.StatusInternalServerError, transport.ErrorTypeServer, "encoding console response")
		return
	}

	h := w.Header()
	h.Set("Content-Type", "application/json")
	h.Set("Content-Length", strconv.Itoa(len(body)))
	h.Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
