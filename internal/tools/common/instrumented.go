package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/server"
)

// ToolHandler is the mcp-go tool handler signature.
type ToolHandler = func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)

// InstrumentedToolHandler wraps a tool handler with tracing, metrics and
// audit logging.
//
// The wrapped handler finds the in-flight invocation with
// instrumentation.InvocationFromContext and may annotate it with the user
// identity and error kind it learns while running.
//
// Usage:
//
//	s.AddTool(myTool, common.InstrumentedToolHandler("my_tool", sc, handler))
func InstrumentedToolHandler(toolName string, sc *server.ServerContext, handler ToolHandler) ToolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sessionID := SessionIDFromContext(ctx)

		ctx, span := instrumentation.StartToolSpan(ctx, toolName,
			attribute.String(instrumentation.SpanAttrSession, sessionID))
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSession(sessionID).
			WithSpanContext(ctx)
		ctx = instrumentation.WithInvocation(ctx, invocation)

		result, err := handler(ctx, request)
		duration := time.Since(start)

		status := instrumentation.StatusSuccess
		switch {
		case err != nil:
			status = instrumentation.StatusError
			invocation.Complete(false, err)
			instrumentation.SetSpanError(span, err)
		case result != nil && result.IsError:
			status = instrumentation.StatusError
			resultErr := errors.New(resultText(result))
			invocation.Complete(false, resultErr)
			instrumentation.SetSpanError(span, resultErr)
		default:
			invocation.Complete(true, nil)
			instrumentation.SetSpanSuccess(span)
		}
		if invocation.ErrorKind != "" {
			span.SetAttributes(attribute.String(instrumentation.SpanAttrErrorKind, invocation.ErrorKind))
		}

		if metrics := sc.Metrics(); metrics != nil {
			metrics.RecordToolInvocation(ctx, toolName, status, invocation.UserEmail, duration)
		}
		if auditLogger := sc.AuditLogger(); auditLogger != nil {
			auditLogger.LogToolInvocation(invocation)
		}

		return result, err
	}
}

// resultText returns the first text content of a tool result.
func resultText(result *mcp.CallToolResult) string {
	for _, content := range result.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			return text.Text
		}
	}
	return "tool returned an error result"
}
