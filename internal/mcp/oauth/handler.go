package oauth

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/giantswarm/mcp-oauth/storage"
)

const (
	// ProtectedResourceMetadataPath is the RFC 9728 well-known endpoint.
	ProtectedResourceMetadataPath = "/.well-known/oauth-protected-resource"

	// SessionIDHeader carries the MCP session ID on streamable HTTP requests.
	SessionIDHeader = "Mcp-Session-Id"

	// supabaseAuthPath is where Supabase serves its authorization server.
	supabaseAuthPath = "/auth/v1"
)

// BearerRecorder receives one observation per MCP request.
// *instrumentation.Metrics implements it.
type BearerRecorder interface {
	RecordBearerToken(ctx context.Context, result string)
}

// Config configures the Handler.
type Config struct {
	// Resource is this server's public base URL.
	Resource string

	// ProjectURL is the Supabase project URL; its auth endpoint is the
	// authorization server advertised to clients.
	ProjectURL string

	// RequireToken rejects MCP requests without a bearer token.
	RequireToken bool

	// SessionTokenTTL bounds how long a token stays bound to its MCP session.
	SessionTokenTTL time.Duration

	// SigningAlgorithms advertised in the resource metadata.
	SigningAlgorithms []string
}

// Handler extracts bearer tokens from MCP requests and serves the
// protected resource metadata. It never validates tokens; the TaskFlow API
// does that with the identity provider.
type Handler struct {
	config  Config
	store   storage.TokenStore
	logger  *slog.Logger
	metrics BearerRecorder
	now     func() time.Time
}

// NewHandler creates a Handler. store may be nil, which disables binding
// tokens to sessions.
func NewHandler(config Config, store storage.TokenStore, logger *slog.Logger, metrics BearerRecorder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SessionTokenTTL <= 0 {
		config.SessionTokenTTL = time.Hour
	}
	if len(config.SigningAlgorithms) == 0 {
		config.SigningAlgorithms = []string{"ES256"}
	}
	return &Handler{
		config:  config,
		store:   store,
		logger:  logger.With(slog.String("component", "oauth")),
		metrics: metrics,
		now:     time.Now,
	}
}

// AuthorizationServer returns the identity provider's authorization server URL.
func (h *Handler) AuthorizationServer() string {
	return strings.TrimRight(h.config.ProjectURL, "/") + supabaseAuthPath
}

// resourceMetadataURL is the absolute metadata URL put in WWW-Authenticate.
func (h *Handler) resourceMetadataURL() string {
	return strings.TrimRight(h.config.Resource, "/") + ProtectedResourceMetadataPath
}

// ServeProtectedResourceMetadata serves RFC 9728 metadata naming the
// identity provider as the authorization server.
func (h *Handler) ServeProtectedResourceMetadata(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	metadata := ProtectedResourceMetadata{
		Resource:                          h.config.Resource,
		AuthorizationServers:              []string{h.AuthorizationServer()},
		BearerMethodsSupported:            []string{"header"},
		ResourceSigningAlgValuesSupported: h.config.SigningAlgorithms,
	}

	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(metadata); err != nil {
		h.logger.Error("Failed to encode metadata", "error", err)
	}
}

// setSecurityHeaders sets security headers on JSON responses
func setSecurityHeaders(w http.ResponseWriter) {
	w.Header().Set("X-Frame-Options", "DENY")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store")
}

// writeUnauthorized writes a 401 with a WWW-Authenticate challenge that
// points clients at the resource metadata.
func (h *Handler) writeUnauthorized(w http.ResponseWriter, code, description string) {
	challenge := fmt.Sprintf(`Bearer resource_metadata=%q`, h.resourceMetadataURL())
	if code != "missing_token" {
		challenge += fmt.Sprintf(`, error=%q, error_description=%q`, code, description)
	}
	w.Header().Set("WWW-Authenticate", challenge)

	setSecurityHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(ErrorResponse{
		Error:            code,
		ErrorDescription: description,
	})
}
