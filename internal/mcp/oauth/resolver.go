package oauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/giantswarm/mcp-oauth/storage"

	"github.com/taskflow/taskflow-mcp/internal/logging"
)

// ErrNoToken is returned when no bearer token is available for the caller.
var ErrNoToken = errors.New("no access token available")

// Resolver finds the bearer token for a tool invocation. It checks, in order:
//
//  1. the token on the current HTTP request (set by RequireBearer)
//  2. the token bound to the caller's MCP session in the token store
//  3. the static token from configuration (stdio transport)
//
// An HTTP request that presented no bearer token resolves to ErrNoToken.
// Its session binding and the static token are never substituted, so
// holding a session ID does not grant the session owner's token.
//
// Resolver implements taskflow.TokenSource.
type Resolver struct {
	store       storage.TokenStore
	staticToken string
	logger      *slog.Logger
	now         func() time.Time
}

// NewResolver creates a Resolver. store may be nil.
func NewResolver(store storage.TokenStore, staticToken string, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		store:       store,
		staticToken: staticToken,
		logger:      logger,
		now:         time.Now,
	}
}

// AccessToken returns the caller's bearer token or ErrNoToken.
func (r *Resolver) AccessToken(ctx context.Context) (string, error) {
	if token, ok := AccessTokenFromContext(ctx); ok {
		return token, nil
	}
	if bearerChecked(ctx) {
		return "", ErrNoToken
	}

	if sessionID, ok := SessionIDFromContext(ctx); ok && r.store != nil {
		token, err := r.store.GetToken(ctx, sessionID)
		switch {
		case err != nil:
			r.logger.Debug("no token bound to session", logging.Session(sessionID), logging.Err(err))
		case token == nil || token.AccessToken == "":
		case !token.Expiry.IsZero() && r.now().After(token.Expiry):
			r.logger.Debug("session token binding expired", logging.Session(sessionID))
		default:
			return token.AccessToken, nil
		}
	}

	if r.staticToken != "" {
		return r.staticToken, nil
	}

	return "", ErrNoToken
}
