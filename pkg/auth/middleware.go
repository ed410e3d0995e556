package auth

import (
	"log/slog"
	"net/http"

	"github.com/rhuss/webconsole/pkg/observability"
	"github.com/rhuss/webconsole/pkg/transport"
)

// Middleware creates rejecting HTTP middleware from an AuthChain. Requests
// whose path is in bypassEndpoints skip authentication; everything else
// needs a Yes from the chain or gets 401.
func Middleware(chain *AuthChain, bypassEndpoints []string) func(http.Handler) http.Handler {
	bypass := make(map[string]bool, len(bypassEndpoints))
	for _, ep := range bypassEndpoints {
		bypass[ep] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bypass[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			result := chain.Authenticate(r.Context(), r)
			observability.AuthDecisionsTotal.WithLabelValues("api", result.Decision.String()).Inc()

			if result.Decision != Yes || result.Identity == nil {
				slog.Warn("authentication failed",
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr,
					"error", result.Err,
				)
				transport.WriteError(w, http.StatusUnauthorized, transport.ErrorTypeUnauthenticated, "authentication required")
				return
			}

			if result.Identity.Subject == "" {
				slog.Error("authenticator returned identity with empty subject")
				transport.WriteError(w, http.StatusInternalServerError, transport.ErrorTypeServer, "internal authentication error")
				return
			}

			slog.Debug("authentication succeeded",
				"subject", result.Identity.Subject,
				"method", result.Identity.Method,
				"path", r.URL.Path,
			)

			next.ServeHTTP(w, r.WithContext(SetIdentity(r.Context(), result.Identity)))
		})
	}
}

// DefaultBypassEndpoints lists endpoints that skip authentication.
var DefaultBypassEndpoints = []string{"/healthz", "/metrics"}
