package server

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/taskflow"
)

// ServerContext holds the context for the MCP server
type ServerContext struct {
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     *taskflow.Fetcher
	sessions    *SessionTracker
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger
	logger      *slog.Logger
	mu          sync.RWMutex
	shutdown    bool
}

// NewServerContext creates a new server context around the TaskFlow fetcher.
func NewServerContext(ctx context.Context, fetcher *taskflow.Fetcher, logger *slog.Logger) (*ServerContext, error) {
	if fetcher == nil {
		return nil, errors.New("taskflow fetcher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:     shutdownCtx,
		cancel:  cancel,
		fetcher: fetcher,
		logger:  logger,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Fetcher returns the TaskFlow API client
func (sc *ServerContext) Fetcher() *taskflow.Fetcher {
	return sc.fetcher
}

// Logger returns the server logger
func (sc *ServerContext) Logger() *slog.Logger {
	return sc.logger
}

// SetMetrics sets the metrics recorder used by tool handlers
func (sc *ServerContext) SetMetrics(m *instrumentation.Metrics) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.metrics = m
}

// Metrics returns the metrics recorder, which may be nil
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.metrics
}

// SetAuditLogger sets the audit logger used by tool handlers
func (sc *ServerContext) SetAuditLogger(a *instrumentation.AuditLogger) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.auditLogger = a
}

// AuditLogger returns the audit logger, which may be nil
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.auditLogger
}

// SetSessionTracker sets the tracker reporting active MCP sessions
func (sc *ServerContext) SetSessionTracker(t *SessionTracker) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sessions = t
}

// Sessions returns the session tracker, which may be nil
func (sc *ServerContext) Sessions() *SessionTracker {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.sessions
}

// IsShutdown returns true if the server is shutting down
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context and stops the session tracker.
// It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}
	sc.shutdown = true
	sc.cancel()

	if sc.sessions != nil {
		sc.sessions.Stop()
	}
	return nil
}
