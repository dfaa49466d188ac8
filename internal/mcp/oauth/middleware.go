package oauth

import (
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/logging"
)

// RequireBearer is middleware for the MCP endpoint. It copies the bearer
// token and MCP session ID into the request context and binds the token to
// the session in the token store.
//
// Requests without a well-formed "Authorization: Bearer" header are
// rejected with 401 when RequireToken is set and passed through otherwise.
func (h *Handler) RequireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := withBearerChecked(r.Context())

		sessionID := r.Header.Get(SessionIDHeader)
		if sessionID != "" {
			ctx = WithSessionID(ctx, sessionID)
		}

		token, present, malformed := bearerToken(r.Header.Get("Authorization"))
		switch {
		case malformed:
			h.record(r, instrumentation.BearerResultRejected)
			if h.config.RequireToken {
				h.writeUnauthorized(w, "invalid_token", "Invalid Authorization header format")
				return
			}
		case !present:
			h.record(r, instrumentation.BearerResultMissing)
			if h.config.RequireToken {
				h.writeUnauthorized(w, "missing_token", "Missing Authorization header")
				return
			}
		default:
			h.record(r, instrumentation.BearerResultPresent)
			ctx = WithAccessToken(ctx, token)
			if sessionID != "" {
				h.bindToSession(r, sessionID, token)
			}
		}

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken parses an Authorization header value.
func bearerToken(header string) (token string, present, malformed bool) {
	if header == "" {
		return "", false, false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false, true
	}
	token = strings.TrimSpace(parts[1])
	if token == "" {
		return "", false, true
	}
	return token, true, false
}

func (h *Handler) bindToSession(r *http.Request, sessionID, token string) {
	if h.store == nil {
		return
	}
	err := h.store.SaveToken(r.Context(), sessionID, &oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
		Expiry:      h.now().Add(h.config.SessionTokenTTL),
	})
	if err != nil {
		// the request still carries the token in its context
		h.logger.Warn("failed to bind token to session",
			logging.Session(sessionID),
			logging.Err(err))
	}
}

func (h *Handler) record(r *http.Request, result string) {
	if h.metrics != nil {
		h.metrics.RecordBearerToken(r.Context(), result)
	}
}
