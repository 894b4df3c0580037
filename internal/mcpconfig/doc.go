/*
Package mcpconfig loads the MCP gateway's fleet descriptor: a YAML
document naming every child MCP server to spawn, with shell-style
environment-variable interpolation applied before parsing.

Unlike internal/config (restexec's environment-only settings), the
gateway's configuration is a list of heterogeneous child-process
descriptors — command, args, per-server env, timeout, restart policy —
which is naturally a file, not a flat set of env vars. The env
interpolation pass lets operators keep secrets (tokens the child server
needs) out of the YAML file itself.
*/
package mcpconfig
