package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rhuss/webconsole/pkg/auth"
	"github.com/rhuss/webconsole/pkg/auth/apikey"
	"github.com/rhuss/webconsole/pkg/auth/ticket"
	"github.com/rhuss/webconsole/pkg/auth/token"
	"github.com/rhuss/webconsole/pkg/config"
	"github.com/rhuss/webconsole/pkg/console"
	"github.com/rhuss/webconsole/pkg/mcp"
	"github.com/rhuss/webconsole/pkg/observability"
	"github.com/rhuss/webconsole/pkg/repl"
	"github.com/rhuss/webconsole/pkg/storage"
	"github.com/rhuss/webconsole/pkg/storage/memory"
	"github.com/rhuss/webconsole/pkg/storage/postgres"
	transporthttp "github.com/rhuss/webconsole/pkg/transport/http"
)

//go:embed console.html
var consolePage string

// app is the assembled server: a demo host application with the console
// mounted and its companion endpoints.
type app struct {
	cfg      *config.Config
	endpoint *console.Endpoint
	history  storage.HistoryStore // nil when storage.type is "none"
	tickets  *ticket.Service      // nil when tickets are disabled
	handler  http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	history, err := openHistory(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, history: history}

	secretOpts := []token.Option{token.WithTTL(cfg.Console.TokenTTL)}
	if cfg.Console.Secret != "" {
		secretOpts = append(secretOpts, token.WithValue(cfg.Console.Secret))
	}
	secret := token.New(secretOpts...)

	var authenticators []auth.Authenticator
	if cfg.Auth.Tickets.Enabled {
		a.tickets = ticket.New(secret.Value, ticket.WithTTL(cfg.Auth.Tickets.TTL))
		authenticators = append(authenticators, a.tickets)
	}
	if len(cfg.Auth.APIKeys) > 0 {
		entries := make([]apikey.RawKeyEntry, 0, len(cfg.Auth.APIKeys))
		for _, k := range cfg.Auth.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{Key: k.Key, Subject: k.Subject})
		}
		authenticators = append(authenticators, apikey.New(entries))
	}

	opts := []console.Option{
		console.WithSecret(secret),
		console.WithAuthenticators(authenticators...),
		console.WithSessionConfig(sessionConfig(cfg.Console)),
		console.WithMaxBodySize(cfg.Console.MaxBodySize),
		console.WithLogger(logger),
	}
	if history != nil {
		opts = append(opts, console.WithHistory(history))
	}

	host := hostApp(cfg.Console.Path)
	a.endpoint = console.New(host, opts...)

	protect := auth.Middleware(a.endpoint.ControlChain(), auth.DefaultBypassEndpoints)

	var apiOpts []transporthttp.APIOption
	if history != nil {
		apiOpts = append(apiOpts, transporthttp.WithHistoryStore(history))
	}
	if a.tickets != nil {
		apiOpts = append(apiOpts, transporthttp.WithTicketIssuer(a.tickets))
	}
	controlAPI := transporthttp.NewAPI(a.endpoint, cfg.Console.Path, apiOpts...)

	mux := http.NewServeMux()
	mux.Handle(cfg.Console.Path, a.endpoint)
	mux.Handle(strings.TrimSuffix(cfg.Console.Path, "/")+"/", protect(controlAPI))
	if cfg.MCP.Enabled {
		mux.Handle(cfg.MCP.Path, protect(mcp.Handler(mcp.NewServer(a.endpoint, history, version))))
	}
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}
	mux.HandleFunc("GET /healthz", a.handleHealthz)
	mux.Handle("/", host)

	a.handler = observability.MetricsMiddleware(mux)
	return a, nil
}

// Close releases the history store.
func (a *app) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

func (a *app) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if a.history != nil {
		if err := a.history.HealthCheck(r.Context()); err != nil {
			http.Error(w, "history store unavailable: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func openHistory(ctx context.Context, cfg config.StorageConfig) (storage.HistoryStore, error) {
	switch cfg.Type {
	case "memory":
		slog.Info("history enabled", "type", "memory", "max_size", cfg.MaxSize)
		return memory.New(cfg.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            cfg.Postgres.DSN,
			MaxConns:       cfg.Postgres.MaxConns,
			MigrateOnStart: cfg.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("opening postgres history: %w", err)
		}
		slog.Info("history enabled", "type", "postgres")
		return store, nil
	case "none":
		slog.Info("history disabled")
		return nil, nil
	}
	return nil, errors.New("unknown storage type " + cfg.Type)
}

func sessionConfig(c config.ConsoleConfig) repl.Config {
	return repl.Config{
		Timeout:        c.EvalTimeout,
		TimerWait:      c.TimerWait,
		MaxOutputChars: c.MaxOutputChars,
		MaxHistory:     c.MaxHistory,
		ShellCommands:  c.ShellCommands,
		ShellTimeout:   c.ShellTimeout,
		Shell:          c.Shell,
	}
}

// hostApp is the demo application the console is mounted into. It serves
// a small browser console on consolePath and a greeting everywhere else.
func hostApp(consolePath string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+consolePath, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, consolePage)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = io.WriteString(w, "hello from the host application\n")
	})
	return mux
}
