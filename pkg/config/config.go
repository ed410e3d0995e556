// Package config provides unified configuration for the web console.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (WEBCONSOLE_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the web console.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Console       ConsoleConfig       `yaml:"console"`
	Auth          AuthConfig          `yaml:"auth"`
	Storage       StorageConfig       `yaml:"storage"`
	MCP           MCPConfig           `yaml:"mcp"`
	Observability ObservabilityConfig `yaml:"observability"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 120s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// ConsoleConfig holds the console endpoint and session settings.
type ConsoleConfig struct {
	Path       string        `yaml:"path"`        // default: "/console"
	Secret     string        `yaml:"secret"`      // generated when empty
	SecretFile string        `yaml:"secret_file"` // _file variant for secret
	TokenFile  string        `yaml:"token_file"`  // the active token is written here (0600)
	TokenTTL   time.Duration `yaml:"token_ttl"`   // 0 = never expires

	MaxBodySize    int64         `yaml:"max_body_size"`    // default: 1 MiB
	EvalTimeout    time.Duration `yaml:"eval_timeout"`     // default: 30s
	TimerWait      time.Duration `yaml:"timer_wait"`       // default: 2s
	MaxOutputChars int           `yaml:"max_output_chars"` // default: 65536
	MaxHistory     int           `yaml:"max_history"`      // default: 1000

	ShellCommands bool          `yaml:"shell_commands"` // default: false
	ShellTimeout  time.Duration `yaml:"shell_timeout"`  // default: 10s
	Shell         string        `yaml:"shell"`          // default: "/bin/sh"
}

// AuthConfig holds the authenticators that run after the console token.
type AuthConfig struct {
	APIKeys []APIKeyConfig `yaml:"api_keys"`
	Tickets TicketConfig   `yaml:"tickets"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key" json:"key"`
	KeyFile string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject string `yaml:"subject" json:"subject"`
}

// TicketConfig controls short-lived console tickets.
type TicketConfig struct {
	Enabled bool          `yaml:"enabled"` // default: true
	TTL     time.Duration `yaml:"ttl"`     // default: 15m
}

// StorageConfig holds evaluation history settings.
type StorageConfig struct {
	Type     string         `yaml:"type"`     // "memory", "postgres" or "none", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory store, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 4
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// MCPConfig holds the MCP server endpoint settings.
type MCPConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/mcp"
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"` // default: true
	Path    string `yaml:"path"`    // default: "/metrics"
}

// LoggingConfig holds log output settings. WEBCONSOLE_LOG_LEVEL and
// WEBCONSOLE_DEBUG take precedence at startup.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // ERROR, WARN, INFO, DEBUG, TRACE; default: INFO
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Console: ConsoleConfig{
			Path:           "/console",
			MaxBodySize:    1 << 20,
			EvalTimeout:    30 * time.Second,
			TimerWait:      2 * time.Second,
			MaxOutputChars: 64 * 1024,
			MaxHistory:     1000,
			ShellTimeout:   10 * time.Second,
			Shell:          "/bin/sh",
		},
		Auth: AuthConfig{
			Tickets: TicketConfig{
				Enabled: true,
				TTL:     15 * time.Minute,
			},
		},
		Storage: StorageConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns:       4,
				MigrateOnStart: true,
			},
		},
		MCP: MCPConfig{
			Enabled: true,
			Path:    "/mcp",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
	}
}
