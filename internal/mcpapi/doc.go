/*
Package mcpapi implements HTTP Surface B: the MCP gateway's chi router,
middleware, and the three routes it exposes — POST /mcp/call, GET
/mcp/tools, and GET /health.

It mirrors internal/restapi's shape (same envelope, same auth-then-
validate middleware ordering, same chi stack) but dispatches onto a
fleet of internal/mcpsession.Session values selected by server name
rather than a single local interpreter, and resolves tool metadata from
internal/toolregistry instead of a workspace store.
*/
package mcpapi
