package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/mcp/oauth"
)

const (
	// MCPEndpointPath is where the streamable HTTP transport is served.
	MCPEndpointPath = "/mcp"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultIdleTimeout       = 120 * time.Second
	// applies only when streaming is disabled; SSE responses stay open
	defaultWriteTimeout = 30 * time.Second
)

// HTTPConfig configures the MCP HTTP surface.
type HTTPConfig struct {
	// BaseURL is the public URL of this server, used as the protected
	// resource identifier.
	BaseURL string

	// DisableStreaming makes the MCP endpoint answer with plain JSON
	// instead of SSE streams.
	DisableStreaming bool

	CORS CORSConfig

	Logger *slog.Logger
}

// OAuthHTTPServer serves the MCP streamable HTTP transport as an OAuth
// protected resource. Token issuance is left to the identity provider
// named in the RFC 9728 metadata; this server only forwards the bearer
// token to the TaskFlow API.
type OAuthHTTPServer struct {
	mcpServer     *mcpserver.MCPServer
	oauthHandler  *oauth.Handler
	config        HTTPConfig
	httpServer    *http.Server
	healthChecker *HealthChecker
	metrics       *instrumentation.Metrics
	logger        *slog.Logger
}

// NewOAuthHTTPServer creates the HTTP server for MCP.
func NewOAuthHTTPServer(mcpServer *mcpserver.MCPServer, oauthHandler *oauth.Handler, config HTTPConfig) (*OAuthHTTPServer, error) {
	if mcpServer == nil {
		return nil, errors.New("mcp server is required")
	}
	if oauthHandler == nil {
		return nil, errors.New("oauth handler is required")
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	// Plain HTTP is tolerated outside loopback (e.g. behind a TLS
	// terminating proxy on a private network), but it is worth a warning.
	if err := validateHTTPSRequirement(config.BaseURL); err != nil {
		config.Logger.Warn("base URL does not meet OAuth 2.1 HTTPS requirement",
			"base_url", config.BaseURL,
			"reason", err.Error())
	}

	return &OAuthHTTPServer{
		mcpServer:    mcpServer,
		oauthHandler: oauthHandler,
		config:       config,
		logger:       config.Logger,
	}, nil
}

// SetHealthChecker registers the health endpoints on the server.
func (s *OAuthHTTPServer) SetHealthChecker(h *HealthChecker) {
	s.healthChecker = h
}

// SetMetrics enables HTTP request metrics.
func (s *OAuthHTTPServer) SetMetrics(m *instrumentation.Metrics) {
	s.metrics = m
}

// Handler builds the HTTP handler tree:
//
//	/mcp                                      MCP streamable HTTP (bearer middleware)
//	/.well-known/oauth-protected-resource     RFC 9728 metadata
//	/.well-known/oauth-protected-resource/mcp RFC 9728 metadata (path form)
//	/healthz, /readyz, /healthz/detailed      health checks, when set
//
// Every route passes through CORS and HTTP metrics.
func (s *OAuthHTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(MCPEndpointPath),
		mcpserver.WithDisableStreaming(s.config.DisableStreaming),
	)
	mux.Handle(MCPEndpointPath, s.oauthHandler.RequireBearer(streamable))

	metadata := http.HandlerFunc(s.oauthHandler.ServeProtectedResourceMetadata)
	mux.Handle(oauth.ProtectedResourceMetadataPath, metadata)
	mux.Handle(oauth.ProtectedResourceMetadataPath+MCPEndpointPath, metadata)

	if s.healthChecker != nil {
		s.healthChecker.RegisterHealthEndpoints(mux)
	}

	return corsMiddleware(s.config.CORS, s.instrumentationMiddleware(mux))
}

// Start starts the HTTP server and blocks until it stops.
func (s *OAuthHTTPServer) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		IdleTimeout:       defaultIdleTimeout,
	}
	if s.config.DisableStreaming {
		s.httpServer.WriteTimeout = defaultWriteTimeout
	}

	s.logger.Info("starting MCP HTTP server",
		"addr", addr,
		"endpoint", MCPEndpointPath,
		"base_url", s.config.BaseURL,
		"authorization_server", s.oauthHandler.AuthorizationServer())

	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *OAuthHTTPServer) Shutdown(ctx context.Context) error {
	if s.healthChecker != nil {
		s.healthChecker.SetReady(false)
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

// instrumentationMiddleware records one HTTP request metric per request.
func (s *OAuthHTTPServer) instrumentationMiddleware(next http.Handler) http.Handler {
	if s.metrics == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := newResponseWriter(w)
		next.ServeHTTP(rw, r)
		s.metrics.RecordHTTPRequest(r.Context(), r.Method, routeLabel(r.URL.Path), rw.statusCode, time.Since(start))
	})
}

// routeLabel maps a request path onto the fixed set of served routes so
// arbitrary paths cannot inflate metric cardinality.
func routeLabel(path string) string {
	switch path {
	case MCPEndpointPath, "/healthz", "/readyz", "/healthz/detailed":
		return path
	}
	if strings.HasPrefix(path, oauth.ProtectedResourceMetadataPath) {
		return oauth.ProtectedResourceMetadataPath
	}
	return "other"
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode  int
	wroteHeader bool
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the wrapper.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// validateHTTPSRequirement ensures OAuth 2.1 HTTPS compliance
// Allows HTTP only for loopback addresses (localhost, 127.0.0.1, ::1)
func validateHTTPSRequirement(baseURL string) error {
	if baseURL == "" {
		return fmt.Errorf("base URL cannot be empty")
	}

	// Parse URL to properly validate scheme and host
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("invalid base URL: %w", err)
	}

	// Allow HTTP only for loopback addresses
	if u.Scheme == "http" {
		host := u.Hostname()
		if host != "localhost" && host != "127.0.0.1" && host != "::1" {
			return fmt.Errorf("OAuth 2.1 requires HTTPS for production (got: %s). Use HTTPS or localhost for development", baseURL)
		}
	} else if u.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: %s. Must be http (localhost only) or https", u.Scheme)
	}

	return nil
}
