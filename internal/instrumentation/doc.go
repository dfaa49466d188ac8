// Package instrumentation provides OpenTelemetry instrumentation for the
// taskflow-mcp server.
//
// # Metrics
//
// Server/HTTP:
//   - http_requests_total: HTTP requests by method, path, and status
//   - http_request_duration_seconds: HTTP request durations
//   - active_sessions: active MCP sessions
//   - bearer_token_total: MCP requests by bearer token outcome
//
// TaskFlow API:
//   - taskflow_api_requests_total: upstream calls by operation, status class, and error kind
//   - taskflow_api_request_duration_seconds: upstream call durations
//
// MCP Tools:
//   - mcp_tool_invocations_total: tool invocations by tool name and status
//   - mcp_tool_duration_seconds: tool execution durations
//
// # Tracing
//
// Spans are created for MCP tool invocations (tool.<name>) and TaskFlow API
// operations (taskflow.<operation>). The outbound HTTP round trip is traced by
// otelhttp as a child span.
//
// # Audit
//
// Every tool invocation produces one audit record carrying a UUID, the
// hashed user identity learned from the upstream response, and the error
// kind on failure.
//
// # Configuration
//
// Environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: taskflow-mcp)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_PII
package instrumentation
