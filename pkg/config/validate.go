package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port))
	}

	if !strings.HasPrefix(c.Console.Path, "/") || c.Console.Path == "/" {
		errs = append(errs, fmt.Errorf("console.path must start with \"/\" and name a path below the root, got %q", c.Console.Path))
	}
	if c.Console.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("console.max_body_size must be > 0, got %d", c.Console.MaxBodySize))
	}
	if c.Console.EvalTimeout < 0 {
		errs = append(errs, fmt.Errorf("console.eval_timeout must not be negative, got %v", c.Console.EvalTimeout))
	}
	if c.Console.TokenTTL < 0 {
		errs = append(errs, fmt.Errorf("console.token_ttl must not be negative, got %v", c.Console.TokenTTL))
	}
	if c.Console.ShellCommands && c.Console.Shell == "" {
		errs = append(errs, fmt.Errorf("console.shell is required when console.shell_commands is enabled"))
	}

	switch c.Storage.Type {
	case "memory", "postgres", "none":
	default:
		errs = append(errs, fmt.Errorf("storage.type must be \"memory\", \"postgres\" or \"none\", got %q", c.Storage.Type))
	}
	if c.Storage.Type == "postgres" && c.Storage.Postgres.DSN == "" && c.Storage.Postgres.DSNFile == "" {
		errs = append(errs, fmt.Errorf("storage.postgres.dsn or storage.postgres.dsn_file is required when storage.type is \"postgres\""))
	}

	for i, k := range c.Auth.APIKeys {
		if k.Key == "" && k.KeyFile == "" {
			errs = append(errs, fmt.Errorf("auth.api_keys[%d]: key or key_file is required", i))
		}
	}
	if c.Auth.Tickets.Enabled && c.Auth.Tickets.TTL <= 0 {
		errs = append(errs, fmt.Errorf("auth.tickets.ttl must be > 0 when tickets are enabled"))
	}

	if c.MCP.Enabled && !strings.HasPrefix(c.MCP.Path, "/") {
		errs = append(errs, fmt.Errorf("mcp.path must start with \"/\", got %q", c.MCP.Path))
	}

	switch strings.ToLower(c.Logging.Format) {
	case "text", "json", "":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
