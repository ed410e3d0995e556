package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rhuss/webconsole/pkg/config"
	"github.com/rhuss/webconsole/pkg/debug"
	transporthttp "github.com/rhuss/webconsole/pkg/transport/http"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo application with the console mounted",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.Port = servePort
	}

	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.publishToken(); err != nil {
		return err
	}
	if cfg.Console.TokenTTL > 0 {
		go a.rotateTokens(ctx)
	}

	addr := ":" + strconv.Itoa(cfg.Server.Port)
	logger.Info("console mounted",
		"path", cfg.Console.Path,
		"token", debug.Mask(a.endpoint.Token()),
		"shell_commands", cfg.Console.ShellCommands,
		"storage", cfg.Storage.Type,
	)

	var extras []string
	if cfg.MCP.Enabled {
		extras = append(extras, fmt.Sprintf("%s http://localhost%s%s", dimStyle.Render("mcp:    "), addr, cfg.MCP.Path))
	}
	if cfg.Console.TokenFile != "" {
		extras = append(extras, fmt.Sprintf("%s %s", dimStyle.Render("token file:"), cfg.Console.TokenFile))
	}
	printBanner(cmd.ErrOrStderr(), "localhost"+addr, cfg.Console.Path, debug.Mask(a.endpoint.Token()), extras)

	srv := transporthttp.NewServer(a.handler,
		transporthttp.WithAddr(addr),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(logger),
	)
	return srv.ListenAndServe(ctx)
}

// publishToken writes the active token to console.token_file, readable by
// the owner only.
func (a *app) publishToken() error {
	path := a.cfg.Console.TokenFile
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(a.endpoint.Token()+"\n"), 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	// WriteFile keeps the mode of an existing file.
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("restricting token file: %w", err)
	}
	return nil
}

// rotateTokens replaces the token whenever it expires.
func (a *app) rotateTokens(ctx context.Context) {
	for {
		wait := time.Until(a.endpoint.Secret().ExpiresAt())
		if wait < time.Second {
			wait = time.Second
		}

		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}

		if !a.endpoint.Secret().Expired() {
			continue
		}
		a.endpoint.ResetToken()
		if err := a.publishToken(); err != nil {
			slog.Error("token rotation", "error", err)
		}
	}
}
