/*
Package mcpsession manages one long-lived child process per configured MCP
server: spawn, stdio JSON-RPC framing, the initialize handshake, periodic
health-check pings, and bounded-exponential-backoff restart on crash.

The wire format is line-delimited JSON-RPC 2.0 over the child's stdin/
stdout, the dialect real MCP servers speak (grounded on the stdio
request/response framing used by MCP proxy implementations in the
example pack). Multiple concurrent callers share one session: each frame
is written to stdin with a single Write call on the pipe, whose own write
lock keeps concurrent frames from interleaving, and a single reader
goroutine dispatches responses to waiters keyed by request ID.
*/
package mcpsession
