/*
Package toolregistry caches the tool set each MCP session publishes after
its tools/list handshake completes.

The registry is append-once per server (spec.md §4.9): a session publishes
its tool list exactly once, at startup or restart, and the registry holds
the latest publication per server until the next one replaces it. Two
access paths read it: GET /mcp/tools, which concatenates every server's
tools, and the call path, which resolves a tool's configured timeout
before dispatching to the session.

Enumeration requires an authoritative, iterable index, so the per-server
tool lists live in a plain mutex-guarded map. A ristretto cache sits in
front of the hot single-tool lookup (Lookup), the path exercised on every
POST /mcp/call — admission there is genuinely approximate-cache-shaped
(a miss just falls through to the authoritative map), unlike the
exact-count ledger in internal/auth's rate limiter.
*/
package toolregistry
