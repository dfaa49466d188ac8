package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/giantswarm/mcp-oauth/storage"
	"github.com/giantswarm/mcp-oauth/storage/memory"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/taskflow/taskflow-mcp/internal/config"
	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/logging"
	"github.com/taskflow/taskflow-mcp/internal/mcp/oauth"
	"github.com/taskflow/taskflow-mcp/internal/server"
	"github.com/taskflow/taskflow-mcp/internal/taskflow"
	"github.com/taskflow/taskflow-mcp/internal/tools/tasks_tools"
)

const (
	serverName = "taskflow-mcp"

	metricsStartupTimeout = 5 * time.Second
	shutdownTimeout       = 30 * time.Second
)

// serveFlags holds the values bound to the serve command's flags.
type serveFlags struct {
	configPath       string
	debug            bool
	apiURL           string
	apiTimeout       time.Duration
	projectURL       string
	requireToken     bool
	transport        string
	host             string
	port             int
	baseURL          string
	disableStreaming bool
	metricsEnabled   bool
	metricsAddr      string
}

func newServeCmd() *cobra.Command {
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing the get_tasks tool.

Supports two transport types:
  - streamable-http: Streamable HTTP transport on /mcp (default)
  - stdio: Standard input/output

Configuration is layered: defaults, then the TOML file given with --config,
then environment variables, then flags set on the command line.

Authentication:
  HTTP Transport:
    Clients send "Authorization: Bearer <token>" with a Supabase access
    token. The token is forwarded to the TaskFlow API, which validates it.
    Clients discover the identity provider at
    /.well-known/oauth-protected-resource.

  STDIO Transport:
    Set TASKFLOW_ACCESS_TOKEN (or taskflow.access_token in the config file).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadServeConfig(cmd, &flags)
			if err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	defaults := config.NewDefaultConfig()

	cmd.Flags().StringVarP(&flags.configPath, "config", "c", "", "Path to a TOML configuration file")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&flags.apiURL, "api-url", defaults.TaskFlow.APIURL, "TaskFlow API base URL. Can also use TASKFLOW_API_URL env var.")
	cmd.Flags().DurationVar(&flags.apiTimeout, "api-timeout", defaults.TaskFlow.Timeout.Duration, "Timeout for TaskFlow API requests. Can also use TASKFLOW_API_TIMEOUT env var.")
	cmd.Flags().StringVar(&flags.projectURL, "supabase-project-url", defaults.Auth.ProjectURL, "Supabase project URL of the identity provider. Can also use TASKFLOW_SUPABASE_PROJECT_URL env var.")
	cmd.Flags().BoolVar(&flags.requireToken, "require-token", defaults.Auth.RequireToken, "Reject MCP HTTP requests without a bearer token. Can also use MCP_REQUIRE_TOKEN env var.")
	cmd.Flags().StringVar(&flags.transport, "transport", defaults.Server.Transport, "Transport type: stdio or streamable-http. Can also use MCP_TRANSPORT env var.")
	cmd.Flags().StringVar(&flags.host, "host", defaults.Server.Host, "HTTP listen host. Can also use MCP_HOST env var.")
	cmd.Flags().IntVar(&flags.port, "port", defaults.Server.Port, "HTTP listen port. Can also use PORT env var.")
	cmd.Flags().StringVar(&flags.baseURL, "base-url", "", "Public base URL of this server (default http://localhost:<port>). Can also use MCP_BASE_URL env var. Example: https://mcp.example.com")
	cmd.Flags().BoolVar(&flags.disableStreaming, "disable-streaming", false, "Disable streaming for HTTP transport (for compatibility with certain clients)")

	// Metrics server flags
	cmd.Flags().BoolVar(&flags.metricsEnabled, "metrics-enabled", defaults.Metrics.Enabled, "Enable the metrics server on a dedicated port. Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&flags.metricsAddr, "metrics-addr", defaults.Metrics.Addr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadServeConfig loads the layered configuration and applies the flags
// that were set explicitly on the command line.
func loadServeConfig(cmd *cobra.Command, flags *serveFlags) (*config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}

	config.ApplyOverrides(cfg, overridesFromFlags(cmd, flags))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// overridesFromFlags maps changed flags onto config overrides. Unchanged
// flags keep their defaults out of the way of file and env values.
func overridesFromFlags(cmd *cobra.Command, flags *serveFlags) config.Overrides {
	var o config.Overrides
	changed := cmd.Flags().Changed

	if changed("api-url") {
		o.APIURL = &flags.apiURL
	}
	if changed("api-timeout") {
		o.APITimeout = &flags.apiTimeout
	}
	if changed("supabase-project-url") {
		o.ProjectURL = &flags.projectURL
	}
	if changed("require-token") {
		o.RequireToken = &flags.requireToken
	}
	if changed("transport") {
		o.Transport = &flags.transport
	}
	if changed("host") {
		o.Host = &flags.host
	}
	if changed("port") {
		o.Port = &flags.port
	}
	if changed("base-url") {
		o.BaseURL = &flags.baseURL
	}
	if changed("disable-streaming") {
		o.DisableStreaming = &flags.disableStreaming
	}
	if changed("metrics-enabled") {
		o.MetricsEnabled = &flags.metricsEnabled
	}
	if changed("metrics-addr") {
		o.MetricsAddr = &flags.metricsAddr
	}
	if flags.debug {
		level := "debug"
		o.LogLevel = &level
	}
	return o
}

func runServe(cfg *config.Config) error {
	// Setup graceful shutdown
	shutdownCtx, cancel := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// stdout belongs to the stdio transport, so logs always go to stderr
	logger, err := logging.New(os.Stderr, logging.Options{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Prefix: serverName,
	})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	slog.SetDefault(logger)

	// Initialize instrumentation provider
	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version

	provider, err := instrumentation.NewProvider(shutdownCtx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Error("error during instrumentation shutdown", logging.Err(err))
		}
	}()

	var metrics *instrumentation.Metrics
	if provider.Enabled() {
		metrics = provider.Metrics()
	}

	// Start metrics server if enabled and not in stdio mode
	if cfg.Server.Transport != config.TransportStdio && cfg.Metrics.Enabled && provider.Enabled() {
		metricsServer, err := startMetricsServer(cfg.Metrics.Addr, provider, logger)
		if err != nil {
			return err
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := metricsServer.Shutdown(ctx); err != nil {
				logger.Error("error shutting down metrics server", logging.Err(err))
			}
		}()
	}

	// Per-session bearer token bindings for the HTTP transport
	tokenStore := memory.New()
	defer tokenStore.Stop()

	resolver := oauth.NewResolver(tokenStore, cfg.TaskFlow.AccessToken, logger)

	fetcherConfig := taskflow.Config{
		BaseURL: cfg.TaskFlow.APIURL,
		Timeout: cfg.TaskFlow.Timeout.Duration,
		Tokens:  resolver,
		Logger:  logger,
	}
	if metrics != nil {
		fetcherConfig.Metrics = metrics
	}
	fetcher, err := taskflow.NewFetcher(fetcherConfig)
	if err != nil {
		return fmt.Errorf("failed to create TaskFlow client: %w", err)
	}

	serverContext, err := server.NewServerContext(shutdownCtx, fetcher, logger)
	if err != nil {
		return fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() {
		if err := serverContext.Shutdown(); err != nil {
			logger.Error("error during server context shutdown", logging.Err(err))
		}
	}()

	var sessionRecorder server.SessionRecorder
	if metrics != nil {
		sessionRecorder = metrics
		serverContext.SetMetrics(metrics)
		serverContext.SetAuditLogger(instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging))
	}
	sessions := server.NewSessionTracker(server.DefaultSessionTimeout, sessionRecorder, logger)
	serverContext.SetSessionTracker(sessions)

	mcpSrv, err := newMCPServer(serverContext, sessions)
	if err != nil {
		return err
	}

	logger.Info("starting taskflow MCP server",
		"version", version,
		"transport", cfg.Server.Transport,
		"taskflow_api_url", cfg.TaskFlow.APIURL,
		"identity_provider_url", cfg.Auth.ProjectURL,
		"static_token", cfg.TaskFlow.AccessToken != "")

	switch cfg.Server.Transport {
	case config.TransportStdio:
		return runStdioServer(shutdownCtx, mcpSrv, logger)
	case config.TransportStreamableHTTP:
		return runStreamableHTTPServer(shutdownCtx, cfg, mcpSrv, serverContext, tokenStore, metrics, logger)
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: %s, %s)",
			cfg.Server.Transport, config.TransportStdio, config.TransportStreamableHTTP)
	}
}

// newMCPServer creates the MCP server and registers all tools.
func newMCPServer(sc *server.ServerContext, sessions *server.SessionTracker) (*mcpserver.MCPServer, error) {
	opts := []mcpserver.ServerOption{
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithRecovery(),
	}
	if sessions != nil {
		opts = append(opts, mcpserver.WithHooks(sessions.Hooks()))
	}

	mcpSrv := mcpserver.NewMCPServer(serverName, version, opts...)

	if err := tasks_tools.RegisterTasksTools(mcpSrv, sc); err != nil {
		return nil, fmt.Errorf("failed to register TaskFlow tools: %w", err)
	}
	return mcpSrv, nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}

	// Use ready channel to confirm metrics server started successfully
	metricsReady := make(chan struct{})
	metricsErr := make(chan error, 1)
	go func() {
		if err := metricsServer.StartWithReadySignal(metricsReady); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsErr <- err
		}
		close(metricsErr)
	}()

	select {
	case <-metricsReady:
		return metricsServer, nil
	case err := <-metricsErr:
		return nil, fmt.Errorf("metrics server failed to start: %w", err)
	case <-time.After(metricsStartupTimeout):
		return nil, fmt.Errorf("metrics server startup timed out")
	}
}

func runStdioServer(ctx context.Context, mcpSrv *mcpserver.MCPServer, logger *slog.Logger) error {
	stdioServer := mcpserver.NewStdioServer(mcpSrv)
	stdioServer.SetErrorLogger(log.New(os.Stderr, serverName+": ", log.LstdFlags))

	logger.Info("serving MCP over stdio")
	err := stdioServer.Listen(ctx, os.Stdin, os.Stdout)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runStreamableHTTPServer(
	ctx context.Context,
	cfg *config.Config,
	mcpSrv *mcpserver.MCPServer,
	serverContext *server.ServerContext,
	tokenStore storage.TokenStore,
	metrics *instrumentation.Metrics,
	logger *slog.Logger,
) error {
	baseURL := cfg.Server.PublicBaseURL()
	if cfg.Server.BaseURL == "" {
		logger.Info("no base URL configured, using auto-detected", "base_url", baseURL)
	}

	var bearerRecorder oauth.BearerRecorder
	if metrics != nil {
		bearerRecorder = metrics
	}
	oauthHandler := oauth.NewHandler(oauth.Config{
		Resource:        baseURL,
		ProjectURL:      cfg.Auth.ProjectURL,
		RequireToken:    cfg.Auth.RequireToken,
		SessionTokenTTL: cfg.Auth.SessionTokenTTL.Duration,
	}, tokenStore, logger, bearerRecorder)

	httpServer, err := server.NewOAuthHTTPServer(mcpSrv, oauthHandler, server.HTTPConfig{
		BaseURL:          baseURL,
		DisableStreaming: cfg.Server.DisableStreaming,
		CORS: server.CORSConfig{
			AllowedOrigins: cfg.Server.CORS.AllowedOrigins,
			MaxAge:         cfg.Server.CORS.MaxAge.Duration,
		},
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP server: %w", err)
	}

	// Set up health checker for health check endpoints
	httpServer.SetHealthChecker(server.NewHealthChecker(serverContext))

	// Set up HTTP instrumentation for metrics
	if metrics != nil {
		httpServer.SetMetrics(metrics)
	}

	addr := cfg.Server.ListenAddr()
	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
		logger.Info("HTTP server stopped normally")
	}

	logger.Info("HTTP server gracefully stopped")
	return nil
}
