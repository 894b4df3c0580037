package mcpconfig

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/sandboxcore/core/internal/models"
)

const (
	defaultHealthCheckIntervalMs = 30_000
	minHealthCheckIntervalMs     = 5_000
	maxHealthCheckIntervalMs     = 300_000
	defaultRestartPolicy         = "on-failure"
	maxServerNameLength          = 50
	maxServerTimeoutMs           = 300_000
)

var dnsLabelPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// GatewayConfig is the MCP gateway's full fleet descriptor.
type GatewayConfig struct {
	Servers             []models.MCPServerDescriptor `yaml:"servers"`
	HealthCheckInterval int                           `yaml:"healthCheckInterval"`
	RestartPolicy       string                        `yaml:"restartPolicy"`
}

// HealthCheckIntervalDuration returns the configured interval as a Duration.
func (c *GatewayConfig) HealthCheckIntervalDuration() time.Duration {
	return time.Duration(c.HealthCheckInterval) * time.Millisecond
}

func defaultGatewayConfig() *GatewayConfig {
	return &GatewayConfig{
		Servers:             nil,
		HealthCheckInterval: defaultHealthCheckIntervalMs,
		RestartPolicy:       defaultRestartPolicy,
	}
}

// envKeyMap maps the documented environment variable names to the same
// dotted paths the YAML file's own keys produce, so the env and file
// layers merge onto one key space.
var envKeyMap = map[string]string{
	"HEALTH_CHECK_INTERVAL":     "healthCheckInterval",
	"MCP_SERVER_RESTART_POLICY": "restartPolicy",
}

func envTransformFunc(key string) string {
	if path, ok := envKeyMap[key]; ok {
		return path
	}
	return ""
}

// expandedYAMLSource hands koanf's yaml.Parser already-expanded bytes: the
// file provider's own ReadBytes would hand back the raw, unexpanded file,
// so the $VAR/${VAR} substitution pass runs here, between the read and the
// parse, rather than through file.Provider directly.
type expandedYAMLSource struct {
	expanded []byte
}

func (s *expandedYAMLSource) ReadBytes() ([]byte, error) {
	return s.expanded, nil
}

func (s *expandedYAMLSource) Read() (map[string]interface{}, error) {
	return nil, errors.New("expandedYAMLSource does not support Read; use ReadBytes with a parser")
}

// Load builds the koanf pipeline spec.md's ConfigLoader describes: struct
// defaults, then environment overrides, then the YAML file's own values
// (expanded against the process environment) loaded last so a present
// YAML key always wins over both the env override and the default — the
// same file > env > default precedence the original hand-rolled loader
// enforced, now expressed as ordered koanf layers instead of per-field
// presence checks.
func Load(path string) (*GatewayConfig, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultGatewayConfig(), "yaml"), nil); err != nil {
		return nil, fmt.Errorf("failed to load config defaults: %w", err)
	}

	envProvider := env.Provider("", ".", envTransformFunc)
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	expanded := os.Expand(string(raw), os.Getenv)
	source := &expandedYAMLSource{expanded: []byte(expanded)}
	if err := k.Load(source, yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cfg := &GatewayConfig{}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "yaml"}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces spec.md §4.10's field-level rules, failing with a
// precise error naming the offending field on the first violation.
func (c *GatewayConfig) Validate() error {
	if len(c.Servers) == 0 {
		return fmt.Errorf("servers: at least one MCP server must be configured")
	}

	seen := make(map[string]bool, len(c.Servers))
	for i, s := range c.Servers {
		if s.Name == "" {
			return fmt.Errorf("servers[%d].name: must not be empty", i)
		}
		if len(s.Name) > maxServerNameLength {
			return fmt.Errorf("servers[%d].name: must be at most %d characters, got %d", i, maxServerNameLength, len(s.Name))
		}
		if !dnsLabelPattern.MatchString(s.Name) {
			return fmt.Errorf("servers[%d].name: %q is not a DNS-label-shaped name", i, s.Name)
		}
		if seen[s.Name] {
			return fmt.Errorf("servers[%d].name: duplicate server name %q", i, s.Name)
		}
		seen[s.Name] = true

		if s.Command == "" {
			return fmt.Errorf("servers[%d].command: must not be empty", i)
		}
		if s.TimeoutMillis < 0 || s.TimeoutMillis > maxServerTimeoutMs {
			return fmt.Errorf("servers[%d].timeout: must be in [0, %d], got %d", i, maxServerTimeoutMs, s.TimeoutMillis)
		}
	}

	if c.HealthCheckInterval < minHealthCheckIntervalMs || c.HealthCheckInterval > maxHealthCheckIntervalMs {
		return fmt.Errorf("healthCheckInterval: must be in [%d, %d], got %d", minHealthCheckIntervalMs, maxHealthCheckIntervalMs, c.HealthCheckInterval)
	}

	switch c.RestartPolicy {
	case "never", "on-failure":
	default:
		return fmt.Errorf("restartPolicy: must be one of never|on-failure, got %q", c.RestartPolicy)
	}

	return nil
}

// DefaultConfigPath is searched when CONFIG_PATH is not set.
const DefaultConfigPath = "mcp-servers.yaml"

// ResolvePath returns CONFIG_PATH if set, else DefaultConfigPath.
func ResolvePath() string {
	if v, ok := os.LookupEnv("CONFIG_PATH"); ok && v != "" {
		return v
	}
	return DefaultConfigPath
}
