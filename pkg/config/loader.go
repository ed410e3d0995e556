package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rhuss/webconsole/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, WEBCONSOLE_CONFIG env, ./webconsole.yaml, /etc/webconsole/config.yaml)
//  3. WEBCONSOLE_* environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. WEBCONSOLE_CONFIG environment variable
// 3. ./webconsole.yaml in the current directory
// 4. /etc/webconsole/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("WEBCONSOLE_CONFIG"); envPath != "" {
		return envPath
	}

	candidates := []string{
		"webconsole.yaml",
		"/etc/webconsole/config.yaml",
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyEnvOverrides maps WEBCONSOLE_* environment variables to config
// fields. Malformed numeric, boolean or duration values are reported
// instead of silently ignored.
func applyEnvOverrides(cfg *Config) error {
	e := envReader{}

	e.int("WEBCONSOLE_PORT", &cfg.Server.Port)

	e.string("WEBCONSOLE_CONSOLE_PATH", &cfg.Console.Path)
	e.string("WEBCONSOLE_SECRET", &cfg.Console.Secret)
	e.string("WEBCONSOLE_TOKEN_FILE", &cfg.Console.TokenFile)
	e.duration("WEBCONSOLE_TOKEN_TTL", &cfg.Console.TokenTTL)
	e.duration("WEBCONSOLE_EVAL_TIMEOUT", &cfg.Console.EvalTimeout)
	e.bool("WEBCONSOLE_SHELL_COMMANDS", &cfg.Console.ShellCommands)

	e.string("WEBCONSOLE_STORAGE", &cfg.Storage.Type)
	e.int("WEBCONSOLE_STORAGE_SIZE", &cfg.Storage.MaxSize)
	e.string("WEBCONSOLE_POSTGRES_DSN", &cfg.Storage.Postgres.DSN)

	e.bool("WEBCONSOLE_TICKETS", &cfg.Auth.Tickets.Enabled)
	e.bool("WEBCONSOLE_MCP", &cfg.MCP.Enabled)
	e.string("WEBCONSOLE_LOG_FORMAT", &cfg.Logging.Format)

	// WEBCONSOLE_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("WEBCONSOLE_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("WEBCONSOLE_API_KEYS: %w", err))
		} else if len(keys) > 0 {
			cfg.Auth.APIKeys = keys
		}
	}

	return e.err()
}

// envReader collects parse errors while copying environment values.
type envReader struct {
	errs []error
}

func (e *envReader) string(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func (e *envReader) int(name string, dst *int) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = n
}

func (e *envReader) bool(name string, dst *bool) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = b
}

func (e *envReader) duration(name string, dst *time.Duration) {
	v := os.Getenv(name)
	if v == "" {
		return
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.errs = append(e.errs, fmt.Errorf("%s: %w", name, err))
		return
	}
	*dst = d
}

func (e *envReader) err() error {
	return errors.Join(e.errs...)
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing API keys JSON: %w", err)
	}
	return keys, nil
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	// console.secret_file -> console.secret
	if cfg.Console.SecretFile != "" && cfg.Console.Secret == "" {
		val, err := readSecretFile(cfg.Console.SecretFile)
		if err != nil {
			return fmt.Errorf("console.secret_file: %w", err)
		}
		cfg.Console.Secret = val
	}

	// storage.postgres.dsn_file -> storage.postgres.dsn
	if cfg.Storage.Postgres.DSNFile != "" && cfg.Storage.Postgres.DSN == "" {
		val, err := readSecretFile(cfg.Storage.Postgres.DSNFile)
		if err != nil {
			return fmt.Errorf("storage.postgres.dsn_file: %w", err)
		}
		cfg.Storage.Postgres.DSN = val
	}

	// auth.api_keys[*].key_file -> auth.api_keys[*].key
	for i := range cfg.Auth.APIKeys {
		if cfg.Auth.APIKeys[i].KeyFile != "" && cfg.Auth.APIKeys[i].Key == "" {
			val, err := readSecretFile(cfg.Auth.APIKeys[i].KeyFile)
			if err != nil {
				return fmt.Errorf("auth.api_keys[%d].key_file: %w", i, err)
			}
			cfg.Auth.APIKeys[i].Key = val
		}
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}
