package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
)

// DefaultMetricsAddr is used when MetricsServerConfig.Addr is empty.
const DefaultMetricsAddr = ":9090"

const (
	metricsReadHeaderTimeout = 10 * time.Second
	metricsWriteTimeout      = 10 * time.Second
	metricsIdleTimeout       = 60 * time.Second
)

// MetricsServerConfig configures the dedicated metrics listener.
type MetricsServerConfig struct {
	Addr string

	// InstrumentationProvider must be enabled; its Prometheus exporter
	// feeds the default registry served on /metrics.
	InstrumentationProvider *instrumentation.Provider

	Logger *slog.Logger
}

// MetricsServer serves /metrics on its own port, away from the MCP
// endpoint and its bearer handling.
type MetricsServer struct {
	addr   string
	logger *slog.Logger

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
}

// NewMetricsServer validates the config. Nothing is bound until Start.
func NewMetricsServer(config MetricsServerConfig) (*MetricsServer, error) {
	switch {
	case config.InstrumentationProvider == nil:
		return nil, errors.New("instrumentation provider is required for metrics server")
	case !config.InstrumentationProvider.Enabled():
		return nil, errors.New("instrumentation provider is not enabled")
	}
	if config.Addr == "" {
		config.Addr = DefaultMetricsAddr
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &MetricsServer{addr: config.Addr, logger: config.Logger}, nil
}

// Start serves until Shutdown. It blocks.
func (s *MetricsServer) Start() error {
	return s.StartWithReadySignal(nil)
}

// StartWithReadySignal binds the port, closes ready (when non-nil) and
// serves until Shutdown. Bind failures are returned before ready closes.
func (s *MetricsServer) StartWithReadySignal(ready chan<- struct{}) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: metricsReadHeaderTimeout,
		WriteTimeout:      metricsWriteTimeout,
		IdleTimeout:       metricsIdleTimeout,
	}

	s.mu.Lock()
	s.httpServer, s.listener = srv, ln
	s.mu.Unlock()

	s.logger.Info("starting metrics server", "addr", ln.Addr().String())
	if ready != nil {
		close(ready)
	}
	return srv.Serve(ln)
}

// Shutdown stops a started server. It is a no-op otherwise.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()

	if srv == nil {
		return nil
	}
	s.logger.Info("shutting down metrics server")
	return srv.Shutdown(ctx)
}

// Addr is the bound address after Start, the configured one before.
func (s *MetricsServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
