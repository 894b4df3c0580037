/*
Package config loads restexec's server configuration from environment
variables via Koanf v2.

# Configuration Sources

Defaults are loaded first, then overridden by environment variables. There
is no config file for restexec (that's Core B's ConfigLoader, in
internal/mcpconfig) — every field here is small enough to live in the
environment, and spec.md's Non-goals rule out hot reconfiguration anyway:
a config change requires a restart.

# Environment Variables

  - PORT: HTTP listen port (default 8080)
  - WORKSPACE_DIR: saved-artifact directory (default ./workspace)
  - TOOLS_DIR: read-allow directory for the interpreter (default ./tools)
  - DEFAULT_TIMEOUT: execution timeout in ms when the request omits one (default 30000)
  - MAX_TIMEOUT: upper bound for a request-supplied timeout in ms (default 300000)
  - LOG_LEVEL: debug|info|warn|error (default info)
  - LOG_FORMAT: json|text (default json)
  - AUTH_ENABLED: "true" or "false", case-insensitive, surrounding whitespace ignored (default false)
  - AUTH_API_KEY: bearer token, required and ≥32 chars when AUTH_ENABLED=true
  - AUTH_TRUSTED_PROXY_IPS: comma-separated CIDRs (or bare IPs) trusted to set X-Forwarded-For
  - AUTH_RATE_LIMIT_ENABLED, AUTH_RATE_LIMIT_MAX_ATTEMPTS, AUTH_RATE_LIMIT_WINDOW_MS,
    AUTH_RATE_LIMIT_TRUST_PROXY, AUTH_RATE_LIMIT_MAX_ENTRIES
*/
package config
