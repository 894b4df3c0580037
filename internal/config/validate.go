package config

import (
	"fmt"
	"strings"
)

// Validate checks field ranges and cross-field requirements, returning a
// precise error naming the offending field on the first violation found.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateExec(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("PORT must be in [1, 65535], got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateExec() error {
	if c.Exec.WorkspaceDir == "" {
		return fmt.Errorf("WORKSPACE_DIR must not be empty")
	}
	if c.Exec.ToolsDir == "" {
		return fmt.Errorf("TOOLS_DIR must not be empty")
	}
	if c.Exec.MaxTimeoutMs < 1 {
		return fmt.Errorf("MAX_TIMEOUT must be >= 1, got %d", c.Exec.MaxTimeoutMs)
	}
	if c.Exec.DefaultTimeoutMs <= 0 {
		return fmt.Errorf("DEFAULT_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.AuthEnabled && len(c.Security.APIKey) < 32 {
		return fmt.Errorf("AUTH_API_KEY must be at least 32 characters when AUTH_ENABLED=true, got %d", len(c.Security.APIKey))
	}
	rl := c.Security.RateLimit
	if rl.Enabled {
		if rl.MaxAttempts < 1 {
			return fmt.Errorf("AUTH_RATE_LIMIT_MAX_ATTEMPTS must be >= 1, got %d", rl.MaxAttempts)
		}
		if rl.WindowMs < 1 {
			return fmt.Errorf("AUTH_RATE_LIMIT_WINDOW_MS must be >= 1, got %d", rl.WindowMs)
		}
		if rl.MaxEntries < 1 {
			return fmt.Errorf("AUTH_RATE_LIMIT_MAX_ENTRIES must be >= 1, got %d", rl.MaxEntries)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of debug|info|warn|error, got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be one of json|text, got %q", c.Logging.Format)
	}
	return nil
}
