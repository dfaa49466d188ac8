package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskflow/taskflow-mcp/internal/logging"
)

const (
	// DefaultSessionTimeout is how long a session may stay idle before the
	// tracker forgets it.
	DefaultSessionTimeout = 24 * time.Hour

	defaultCleanupInterval = 10 * time.Minute
)

// SessionRecorder receives session lifecycle changes.
// *instrumentation.Metrics implements it.
type SessionRecorder interface {
	IncrementActiveSessions(ctx context.Context)
	DecrementActiveSessions(ctx context.Context)
}

// SessionTracker counts active MCP sessions. It is fed by mcp-go server
// hooks: any request seen on a session marks it active, unregistering
// removes it, and sessions idle longer than the timeout are dropped by a
// background cleanup loop. Streamable HTTP clients that never send DELETE
// are only removed by that loop.
type SessionTracker struct {
	sessions        map[string]time.Time // session ID to last access
	mu              sync.Mutex
	sessionTimeout  time.Duration
	cleanupInterval time.Duration
	cleanupDone     chan struct{}
	stopOnce        sync.Once
	recorder        SessionRecorder
	logger          *slog.Logger
	now             func() time.Time
}

// NewSessionTracker creates a tracker and starts its cleanup loop.
// Call Stop to release it.
func NewSessionTracker(timeout time.Duration, recorder SessionRecorder, logger *slog.Logger) *SessionTracker {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &SessionTracker{
		sessions:        make(map[string]time.Time),
		sessionTimeout:  timeout,
		cleanupInterval: defaultCleanupInterval,
		cleanupDone:     make(chan struct{}),
		recorder:        recorder,
		logger:          logger,
		now:             time.Now,
	}
	if timeout < t.cleanupInterval {
		t.cleanupInterval = timeout
	}

	go t.cleanupExpiredSessions()

	return t
}

// Hooks returns mcp-go server hooks that keep the tracker current.
func (t *SessionTracker) Hooks() *mcpserver.Hooks {
	hooks := &mcpserver.Hooks{}
	hooks.AddOnRegisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		t.Touch(ctx, session.SessionID())
	})
	hooks.AddOnUnregisterSession(func(ctx context.Context, session mcpserver.ClientSession) {
		t.Remove(ctx, session.SessionID())
	})
	hooks.AddBeforeAny(func(ctx context.Context, _ any, _ mcp.MCPMethod, _ any) {
		if session := mcpserver.ClientSessionFromContext(ctx); session != nil {
			t.Touch(ctx, session.SessionID())
		}
	})
	return hooks
}

// Touch marks a session as active, adding it if it is new.
func (t *SessionTracker) Touch(ctx context.Context, sessionID string) {
	if sessionID == "" {
		return
	}

	t.mu.Lock()
	_, known := t.sessions[sessionID]
	t.sessions[sessionID] = t.now()
	t.mu.Unlock()

	if !known {
		t.logger.Debug("session started", logging.Session(sessionID))
		if t.recorder != nil {
			t.recorder.IncrementActiveSessions(ctx)
		}
	}
}

// Remove forgets a session.
func (t *SessionTracker) Remove(ctx context.Context, sessionID string) {
	t.mu.Lock()
	_, known := t.sessions[sessionID]
	delete(t.sessions, sessionID)
	t.mu.Unlock()

	if known {
		t.logger.Debug("session ended", logging.Session(sessionID))
		if t.recorder != nil {
			t.recorder.DecrementActiveSessions(ctx)
		}
	}
}

// Count returns the number of active sessions.
func (t *SessionTracker) Count() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}

// expire drops sessions idle longer than the timeout and returns how many
// were removed.
func (t *SessionTracker) expire(ctx context.Context) int {
	t.mu.Lock()
	now := t.now()
	expired := 0
	for sessionID, lastAccess := range t.sessions {
		if now.Sub(lastAccess) > t.sessionTimeout {
			delete(t.sessions, sessionID)
			expired++
		}
	}
	t.mu.Unlock()

	if t.recorder != nil {
		for i := 0; i < expired; i++ {
			t.recorder.DecrementActiveSessions(ctx)
		}
	}
	return expired
}

// cleanupExpiredSessions periodically removes expired sessions
func (t *SessionTracker) cleanupExpiredSessions() {
	ticker := time.NewTicker(t.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := t.expire(context.Background()); n > 0 {
				t.logger.Info("cleaned up expired sessions", "count", n)
			}
		case <-t.cleanupDone:
			return
		}
	}
}

// Stop stops the session cleanup goroutine
func (t *SessionTracker) Stop() {
	t.stopOnce.Do(func() {
		close(t.cleanupDone)
	})
}
