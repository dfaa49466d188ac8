package oauth

import "context"

// contextKey is the type for context keys
type contextKey string

const (
	// tokenContextKey holds the bearer token presented on the current request
	tokenContextKey contextKey = "bearer_token"

	// sessionContextKey holds the MCP session ID of the current request
	sessionContextKey contextKey = "mcp_session"

	// bearerCheckedContextKey marks a request that passed through RequireBearer
	bearerCheckedContextKey contextKey = "bearer_checked"
)

// WithAccessToken returns a context carrying the caller's bearer token.
func WithAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenContextKey, token)
}

// AccessTokenFromContext returns the bearer token placed by the middleware.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenContextKey).(string)
	return token, ok && token != ""
}

// WithSessionID returns a context carrying the MCP session ID.
func WithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionContextKey, sessionID)
}

// SessionIDFromContext returns the MCP session ID placed by the middleware.
func SessionIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(sessionContextKey).(string)
	return id, ok && id != ""
}

// withBearerChecked marks ctx as belonging to an HTTP request whose
// Authorization header has been inspected, whatever the outcome.
func withBearerChecked(ctx context.Context) context.Context {
	return context.WithValue(ctx, bearerCheckedContextKey, true)
}

// bearerChecked reports whether RequireBearer handled the request.
func bearerChecked(ctx context.Context) bool {
	checked, _ := ctx.Value(bearerCheckedContextKey).(bool)
	return checked
}
