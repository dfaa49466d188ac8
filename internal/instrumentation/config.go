package instrumentation

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Config holds the configuration for OpenTelemetry instrumentation.
type Config struct {
	// ServiceName is the name of the service (default: taskflow-mcp)
	ServiceName string

	// ServiceVersion is the version of the service
	ServiceVersion string

	// ServiceInstanceID is the unique instance identifier (default: hostname)
	ServiceInstanceID string

	// K8sNamespace is the Kubernetes namespace where the service is running
	K8sNamespace string

	// K8sPodName is the Kubernetes pod name
	K8sPodName string

	// Enabled determines if instrumentation is active (default: true)
	Enabled bool

	// MetricsExporter specifies the metrics exporter type
	// Options: "prometheus", "otlp", "stdout" (default: "prometheus")
	MetricsExporter string

	// TracingExporter specifies the tracing exporter type
	// Options: "otlp", "stdout", "none" (default: "none")
	TracingExporter string

	// OTLPEndpoint is the OTLP collector endpoint, without protocol prefix.
	OTLPEndpoint string

	// OTLPInsecure disables TLS for OTLP export. Local development only.
	OTLPInsecure bool

	// TraceSamplingRate is the sampling rate for traces (0.0 to 1.0, default: 0.1)
	TraceSamplingRate float64

	// DetailedLabels adds high-cardinality labels (user domain) to tool metrics.
	DetailedLabels bool

	// AuditLogging configures audit logging behavior.
	AuditLogging AuditLoggingConfig
}

// AuditLoggingConfig holds configuration for audit logging.
type AuditLoggingConfig struct {
	// Enabled determines if audit logging is active (default: true)
	Enabled bool

	// IncludePII logs the full user email instead of the anonymized hash.
	IncludePII bool
}

// DefaultConfig reads the standard OTEL_* variables plus the server's own
// switches. Unparsable values fall back to the default.
func DefaultConfig() Config {
	return Config{
		ServiceName:       envString("OTEL_SERVICE_NAME", ServiceName),
		ServiceVersion:    "unknown",
		ServiceInstanceID: envString("OTEL_SERVICE_INSTANCE_ID", ""),
		K8sNamespace:      envString("K8S_NAMESPACE", envString("POD_NAMESPACE", "")),
		K8sPodName:        envString("K8S_POD_NAME", envString("HOSTNAME", "")),
		Enabled:           envParsed("INSTRUMENTATION_ENABLED", true, strconv.ParseBool),
		MetricsExporter:   envString("METRICS_EXPORTER", ExporterPrometheus),
		TracingExporter:   envString("TRACING_EXPORTER", ExporterNone),
		OTLPEndpoint:      envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTLPInsecure:      envParsed("OTEL_EXPORTER_OTLP_INSECURE", false, strconv.ParseBool),
		TraceSamplingRate: envParsed("OTEL_TRACES_SAMPLER_ARG", 0.1, parseFloat),
		DetailedLabels:    envParsed("METRICS_DETAILED_LABELS", false, strconv.ParseBool),
		AuditLogging: AuditLoggingConfig{
			Enabled:    envParsed("AUDIT_LOGGING_ENABLED", true, strconv.ParseBool),
			IncludePII: envParsed("AUDIT_LOGGING_INCLUDE_PII", false, strconv.ParseBool),
		},
	}
}

// Validate rejects unknown exporters, a sampling rate outside [0, 1] and
// OTLP export without an endpoint.
func (c *Config) Validate() error {
	if c.TraceSamplingRate < 0 || c.TraceSamplingRate > 1 {
		return fmt.Errorf("trace sampling rate must be between 0.0 and 1.0, got %f", c.TraceSamplingRate)
	}
	if c.MetricsExporter != "" && !slices.Contains([]string{ExporterPrometheus, ExporterOTLP, ExporterStdout}, c.MetricsExporter) {
		return fmt.Errorf("invalid metrics exporter %q, must be one of: prometheus, otlp, stdout", c.MetricsExporter)
	}
	if c.TracingExporter != "" && !slices.Contains([]string{ExporterOTLP, ExporterStdout, ExporterNone}, c.TracingExporter) {
		return fmt.Errorf("invalid tracing exporter %q, must be one of: otlp, stdout, none", c.TracingExporter)
	}
	if c.OTLPEndpoint == "" && (c.TracingExporter == ExporterOTLP || c.MetricsExporter == ExporterOTLP) {
		return errors.New("OTLP endpoint is required when an OTLP exporter is selected")
	}
	return nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envParsed[T any](key string, fallback T, parse func(string) (T, error)) T {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := parse(v)
	if err != nil {
		return fallback
	}
	return parsed
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Constants for metric label values.
const (
	// ServiceName is the default OpenTelemetry service name.
	ServiceName = "taskflow-mcp"

	// Status values
	StatusSuccess = "success"
	StatusError   = "error"
	StatusUnknown = "unknown"

	// Bearer token outcomes observed by the HTTP middleware
	BearerResultPresent  = "present"
	BearerResultMissing  = "missing"
	BearerResultRejected = "rejected"

	// Upstream service names
	ServiceTaskflow = "taskflow"

	// Exporter types
	ExporterPrometheus = "prometheus"
	ExporterOTLP       = "otlp"
	ExporterStdout     = "stdout"
	ExporterNone       = "none"

	// Metric recording intervals
	DefaultMetricInterval = 10 * time.Second
)
