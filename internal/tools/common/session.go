package common

import (
	"context"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskflow/taskflow-mcp/internal/mcp/oauth"
)

// SessionIDFromContext returns the MCP session a tool call belongs to.
//
// Priority order:
//  1. The mcp-go client session attached to the context
//  2. The Mcp-Session-Id header captured by the bearer middleware
//  3. "" when neither is present (e.g. direct handler calls in tests)
func SessionIDFromContext(ctx context.Context) string {
	if session := mcpserver.ClientSessionFromContext(ctx); session != nil && session.SessionID() != "" {
		return session.SessionID()
	}
	if id, ok := oauth.SessionIDFromContext(ctx); ok {
		return id
	}
	return ""
}
