package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrMethod      = "method"
	attrPath        = "path"
	attrStatus      = "status"
	attrStatusClass = "status_class"
	attrOperation   = "operation"
	attrService     = "service"
	attrResult      = "result"
	attrTool        = "tool"
	attrErrorKind   = "error_kind"
	attrUserDomain  = "user_domain"
)

// Metrics records the server's observability metrics.
// The zero value is a valid no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	activeSessions      metric.Int64UpDownCounter

	// TaskFlow API metrics
	upstreamRequestsTotal   metric.Int64Counter
	upstreamRequestDuration metric.Float64Histogram

	// Bearer token metrics
	bearerTokenTotal metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.activeSessions, err = meter.Int64UpDownCounter(
		"active_sessions",
		metric.WithDescription("Number of active MCP sessions"),
		metric.WithUnit("{session}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_sessions gauge: %w", err)
	}

	m.upstreamRequestsTotal, err = meter.Int64Counter(
		"taskflow_api_requests_total",
		metric.WithDescription("Total number of TaskFlow API requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create taskflow_api_requests_total counter: %w", err)
	}

	m.upstreamRequestDuration, err = meter.Float64Histogram(
		"taskflow_api_request_duration_seconds",
		metric.WithDescription("TaskFlow API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create taskflow_api_request_duration_seconds histogram: %w", err)
	}

	m.bearerTokenTotal, err = meter.Int64Counter(
		"bearer_token_total",
		metric.WithDescription("Total number of MCP requests by bearer token outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create bearer_token_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an inbound HTTP request.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil || m.httpRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	)

	m.httpRequestsTotal.Add(ctx, 1, attrs)
	m.httpRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordUpstreamRequest records one call to the TaskFlow API.
//
// Parameters:
//   - operation: Operation type (currently only "list")
//   - statusCode: HTTP status received, 0 if the request never got a response
//   - errorKind: classified failure kind, empty on success
//   - duration: Time taken for the request
func (m *Metrics) RecordUpstreamRequest(ctx context.Context, operation string, statusCode int, errorKind string, duration time.Duration) {
	if m == nil || m.upstreamRequestsTotal == nil || m.upstreamRequestDuration == nil {
		return
	}

	status := StatusSuccess
	if errorKind != "" {
		status = StatusError
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, ServiceTaskflow),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
		attribute.String(attrStatusClass, StatusClass(statusCode)),
	}
	if errorKind != "" {
		attrs = append(attrs, attribute.String(attrErrorKind, errorKind))
	}

	m.upstreamRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.upstreamRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordBearerToken records the bearer token outcome for an MCP request.
// Result should be one of the BearerResult* constants.
func (m *Metrics) RecordBearerToken(ctx context.Context, result string) {
	if m == nil || m.bearerTokenTotal == nil {
		return
	}

	m.bearerTokenTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordToolInvocation records an MCP tool invocation.
// userEmail is reduced to its domain and only attached when detailed labels are enabled.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status, userEmail string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}
	if m.detailedLabels && userEmail != "" {
		attrs = append(attrs, attribute.String(attrUserDomain, ExtractUserDomain(userEmail)))
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// IncrementActiveSessions increments the active sessions counter.
func (m *Metrics) IncrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, 1)
}

// DecrementActiveSessions decrements the active sessions counter.
func (m *Metrics) DecrementActiveSessions(ctx context.Context) {
	if m == nil || m.activeSessions == nil {
		return
	}
	m.activeSessions.Add(ctx, -1)
}
