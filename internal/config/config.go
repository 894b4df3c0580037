package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ServerConfig holds restexec's HTTP server settings.
type ServerConfig struct {
	Port int `koanf:"port"`
}

// ExecConfig holds the executor's timeout bounds and filesystem roots.
type ExecConfig struct {
	WorkspaceDir     string `koanf:"workspace_dir"`
	ToolsDir         string `koanf:"tools_dir"`
	DefaultTimeoutMs int    `koanf:"default_timeout_ms"`
	MaxTimeoutMs     int    `koanf:"max_timeout_ms"`
	InterpreterBin   string `koanf:"interpreter_bin"`
}

// DefaultTimeout returns the default execution timeout as a time.Duration.
func (e ExecConfig) DefaultTimeout() time.Duration {
	return time.Duration(e.DefaultTimeoutMs) * time.Millisecond
}

// LoggingConfig holds the zerolog output configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// RateLimitConfig mirrors internal/auth.RateLimitConfig plus the toggles
// that only make sense at the config layer (enabled, trust-proxy).
type RateLimitConfig struct {
	Enabled     bool  `koanf:"enabled"`
	MaxAttempts int   `koanf:"max_attempts"`
	WindowMs    int64 `koanf:"window_ms"`
	MaxEntries  int   `koanf:"max_entries"`
	TrustProxy  bool  `koanf:"trust_proxy"`
}

// SecurityConfig holds authentication and rate-limit settings.
type SecurityConfig struct {
	AuthEnabled     bool            `koanf:"auth_enabled"`
	APIKey          string          `koanf:"api_key"`
	TrustedProxyIPs string          `koanf:"trusted_proxy_ips"`
	RateLimit       RateLimitConfig `koanf:"rate_limit"`
}

// Config is restexec's full configuration tree.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Exec     ExecConfig     `koanf:"exec"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
		},
		Exec: ExecConfig{
			WorkspaceDir:     "./workspace",
			ToolsDir:         "./tools",
			DefaultTimeoutMs: 30_000,
			MaxTimeoutMs:     300_000,
			InterpreterBin:   "deno",
		},
		Security: SecurityConfig{
			AuthEnabled:     false,
			APIKey:          "",
			TrustedProxyIPs: "",
			RateLimit: RateLimitConfig{
				Enabled:     true,
				MaxAttempts: 5,
				WindowMs:    60_000,
				MaxEntries:  10_000,
				TrustProxy:  false,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// envKeyMap maps the documented environment variable names to koanf's
// dotted config paths.
var envKeyMap = map[string]string{
	"PORT":                         "server.port",
	"WORKSPACE_DIR":                "exec.workspace_dir",
	"TOOLS_DIR":                    "exec.tools_dir",
	"DEFAULT_TIMEOUT":              "exec.default_timeout_ms",
	"MAX_TIMEOUT":                  "exec.max_timeout_ms",
	"LOG_LEVEL":                    "logging.level",
	"LOG_FORMAT":                   "logging.format",
	"AUTH_ENABLED":                 "security.auth_enabled",
	"AUTH_API_KEY":                 "security.api_key",
	"AUTH_TRUSTED_PROXY_IPS":       "security.trusted_proxy_ips",
	"AUTH_RATE_LIMIT_ENABLED":      "security.rate_limit.enabled",
	"AUTH_RATE_LIMIT_MAX_ATTEMPTS": "security.rate_limit.max_attempts",
	"AUTH_RATE_LIMIT_WINDOW_MS":    "security.rate_limit.window_ms",
	"AUTH_RATE_LIMIT_TRUST_PROXY":  "security.rate_limit.trust_proxy",
	"AUTH_RATE_LIMIT_MAX_ENTRIES":  "security.rate_limit.max_entries",
}

func envTransformFunc(key string) string {
	if path, ok := envKeyMap[key]; ok {
		return path
	}
	return ""
}

// strictBoolKeys names the environment variables whose values must parse
// with spec.md's exact rule ("boolean parse is case-insensitive true"):
// anything besides true/false is a startup error, never a silent default.
// koanf's env provider loads these as plain strings (DefaultTimeout and
// the numeric fields parse fine through mapstructure's weak typing, but
// bool is weakly typed too permissively — "1", "yes", "on" would all
// silently succeed) so they get an explicit re-check against the raw
// environment after Unmarshal.
var strictBoolKeys = []string{
	"AUTH_ENABLED",
	"AUTH_RATE_LIMIT_ENABLED",
	"AUTH_RATE_LIMIT_TRUST_PROXY",
}

// Load builds Config from defaults overridden by environment variables.
// There is deliberately no config-file layer: restexec's settings are few
// enough, and spec-mandated behavior, that a file adds indirection without
// buying anything (the MCP gateway's YAML ConfigLoader, in
// internal/mcpconfig, is a different story — it describes a fleet of
// child processes, which doesn't fit in environment variables).
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	for _, envKey := range strictBoolKeys {
		raw, ok := os.LookupEnv(envKey)
		if !ok {
			continue
		}
		parsed, err := parseStrictBool(envKey, raw)
		if err != nil {
			return nil, err
		}
		switch envKey {
		case "AUTH_ENABLED":
			cfg.Security.AuthEnabled = parsed
		case "AUTH_RATE_LIMIT_ENABLED":
			cfg.Security.RateLimit.Enabled = parsed
		case "AUTH_RATE_LIMIT_TRUST_PROXY":
			cfg.Security.RateLimit.TrustProxy = parsed
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseStrictBool enforces spec.md's "boolean parse is case-insensitive
// true" rule: anything other than true/false (case-insensitively) is a
// configuration error rather than a silent default.
func parseStrictBool(field, raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, fmt.Errorf("%s must be \"true\" or \"false\", got %q", field, raw)
	}
}
