// Package server provides the MCP server context, session tracking,
// and the HTTP surface of the TaskFlow MCP server.
//
// # Key Components
//
// ServerContext holds the TaskFlow fetcher and the instrumentation used by
// tool handlers. It is created once at startup and shared by all sessions.
//
// OAuthHTTPServer serves the MCP streamable HTTP transport as an OAuth
// protected resource:
//   - /mcp with bearer token extraction (no validation; the TaskFlow API
//     validates tokens with the identity provider)
//   - Protected Resource Metadata (RFC 9728) naming Supabase Auth as the
//     authorization server
//   - CORS for browser-based MCP clients
//   - /healthz, /readyz and /healthz/detailed for Kubernetes health checks
//
// SessionTracker counts active MCP sessions through mcp-go server hooks
// and reports them to the active_sessions gauge.
//
// MetricsServer exposes Prometheus metrics on a dedicated port.
package server
