package instrumentation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/taskflow/taskflow-mcp/internal/logging"
)

// ToolInvocation captures one MCP tool call for the audit trail.
//
// The tool handler learns the user identity only from the upstream
// response, so the invocation travels in the context (see WithInvocation)
// and handlers annotate it while the call is in flight.
type ToolInvocation struct {
	// ID uniquely identifies the invocation in logs.
	ID string

	Tool    string
	Session string

	// UserEmail is taken from the TaskFlow API response. It is PII.
	UserEmail string

	// ErrorKind is the classified failure kind, empty on success.
	ErrorKind string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
	SpanID  string

	mu sync.Mutex
}

// NewToolInvocation creates a new ToolInvocation with timing started.
func NewToolInvocation(tool string) *ToolInvocation {
	return &ToolInvocation{
		ID:        uuid.NewString(),
		Tool:      tool,
		StartTime: time.Now(),
	}
}

type invocationKey struct{}

// WithInvocation returns a context carrying ti.
func WithInvocation(ctx context.Context, ti *ToolInvocation) context.Context {
	return context.WithValue(ctx, invocationKey{}, ti)
}

// InvocationFromContext returns the in-flight invocation, or nil.
func InvocationFromContext(ctx context.Context) *ToolInvocation {
	ti, _ := ctx.Value(invocationKey{}).(*ToolInvocation)
	return ti
}

// UserDomain returns the domain portion of the user's email.
func (ti *ToolInvocation) UserDomain() string {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	return ExtractUserDomain(ti.UserEmail)
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// WithSession sets the MCP session ID.
func (ti *ToolInvocation) WithSession(id string) *ToolInvocation {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.Session = id
	return ti
}

// WithUser sets the user identity.
func (ti *ToolInvocation) WithUser(email string) *ToolInvocation {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.UserEmail = email
	return ti
}

// WithErrorKind sets the classified failure kind.
func (ti *ToolInvocation) WithErrorKind(kind string) *ToolInvocation {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.ErrorKind = kind
	return ti
}

// WithSpanContext extracts trace context from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		ti.mu.Lock()
		ti.TraceID = span.SpanContext().TraceID().String()
		ti.SpanID = span.SpanContext().SpanID().String()
		ti.mu.Unlock()
	}
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(success bool, err error) *ToolInvocation {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = success
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// LogAttrs returns the attributes for an audit record. With includePII the
// full email is logged, otherwise only its hash.
func (ti *ToolInvocation) LogAttrs(includePII bool) []slog.Attr {
	ti.mu.Lock()
	defer ti.mu.Unlock()

	attrs := []slog.Attr{
		slog.String("invocation_id", ti.ID),
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}

	if ti.UserEmail != "" {
		if includePII {
			attrs = append(attrs, slog.String("user", ti.UserEmail))
		} else {
			attrs = append(attrs, logging.UserHash(ti.UserEmail))
		}
	}
	if ti.Session != "" {
		attrs = append(attrs, logging.Session(ti.Session))
	}
	if ti.ErrorKind != "" {
		attrs = append(attrs, logging.ErrorKind(ti.ErrorKind))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", ti.SpanID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}

	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger falls back to slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger.With(slog.String("component", "audit")),
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogToolInvocation logs a completed tool invocation.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled || ti == nil {
		return
	}

	attrs := ti.LogAttrs(al.includePII)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
