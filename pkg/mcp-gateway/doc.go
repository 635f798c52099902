// Package mcpgateway serves MCP over Streamable HTTP to many remote clients
// from one process. Every client session owns its own *mcp.Server, built by a
// ServerFactory, and its own Streamable transport. The Gateway authenticates
// each request with a shared bearer secret, then either opens a session (for an
// initialize call without an Mcp-Session-Id header), routes the request to the
// live session named by the header, or rejects it.
//
// Sessions enter the table only after the transport accepts their initialize
// request and leave it exactly once, when they close: explicit DELETE, idle
// reaping, connection loss, or gateway shutdown.
package mcpgateway
