package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Transport types
const (
	TransportStdio          = "stdio"
	TransportStreamableHTTP = "streamable-http"
)

// Config is the complete server configuration. It is built once at startup
// and passed to constructors; nothing reads the environment after that.
type Config struct {
	TaskFlow TaskFlowConfig `toml:"taskflow"`
	Auth     AuthConfig     `toml:"auth"`
	Server   ServerConfig   `toml:"server"`
	Metrics  MetricsConfig  `toml:"metrics"`
	Logging  LoggingConfig  `toml:"logging"`
}

// TaskFlowConfig describes the upstream TaskFlow API.
type TaskFlowConfig struct {
	APIURL  string   `toml:"api_url"`
	Timeout Duration `toml:"timeout"`
	// AccessToken is used when no per-request token is available (stdio).
	AccessToken string `toml:"access_token"`
}

// AuthConfig describes the identity provider and bearer handling.
type AuthConfig struct {
	ProjectURL      string   `toml:"project_url"`
	RequireToken    bool     `toml:"require_token"`
	SessionTokenTTL Duration `toml:"session_token_ttl"`
}

// ServerConfig contains MCP server settings.
type ServerConfig struct {
	Transport        string     `toml:"transport"`
	Host             string     `toml:"host"`
	Port             int        `toml:"port"`
	BaseURL          string     `toml:"base_url"`
	DisableStreaming bool       `toml:"disable_streaming"`
	CORS             CORSConfig `toml:"cors"`
}

// CORSConfig contains cross-origin settings for the HTTP transport.
type CORSConfig struct {
	AllowedOrigins []string `toml:"allowed_origins"`
	MaxAge         Duration `toml:"max_age"`
}

// MetricsConfig contains the dedicated metrics server settings.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Duration is a time.Duration that reads from strings like "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// ListenAddr returns host:port for the HTTP listener.
func (s ServerConfig) ListenAddr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// PublicBaseURL returns the configured base URL or the localhost default
// for the listening port.
func (s ServerConfig) PublicBaseURL() string {
	if s.BaseURL != "" {
		return strings.TrimRight(s.BaseURL, "/")
	}
	return fmt.Sprintf("http://localhost:%d", s.Port)
}

// Load builds the configuration with priority: defaults -> file -> env.
// Flag overrides are applied by the caller with ApplyOverrides.
func Load(path string) (*Config, error) {
	cfg := NewDefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("TASKFLOW_API_URL"); v != "" {
		cfg.TaskFlow.APIURL = v
	}
	if v := os.Getenv("TASKFLOW_API_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid TASKFLOW_API_TIMEOUT %q: %w", v, err)
		}
		cfg.TaskFlow.Timeout.Duration = d
	}
	if v := os.Getenv("TASKFLOW_ACCESS_TOKEN"); v != "" {
		cfg.TaskFlow.AccessToken = v
	}
	if v := os.Getenv("TASKFLOW_SUPABASE_PROJECT_URL"); v != "" {
		cfg.Auth.ProjectURL = v
	}
	if v := os.Getenv("MCP_REQUIRE_TOKEN"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_REQUIRE_TOKEN %q: %w", v, err)
		}
		cfg.Auth.RequireToken = b
	}
	if v := os.Getenv("MCP_SESSION_TOKEN_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid MCP_SESSION_TOKEN_TTL %q: %w", v, err)
		}
		cfg.Auth.SessionTokenTTL.Duration = d
	}
	if v := os.Getenv("MCP_TRANSPORT"); v != "" {
		cfg.Server.Transport = v
	}
	if v := os.Getenv("MCP_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("MCP_BASE_URL"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := os.Getenv("MCP_CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.CORS.AllowedOrigins = SplitList(v)
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid METRICS_ENABLED %q: %w", v, err)
		}
		cfg.Metrics.Enabled = b
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	return nil
}

// Overrides holds command-line values. Nil fields were not set on the
// command line and leave the configuration untouched.
type Overrides struct {
	APIURL           *string
	APITimeout       *time.Duration
	ProjectURL       *string
	RequireToken     *bool
	Transport        *string
	Host             *string
	Port             *int
	BaseURL          *string
	DisableStreaming *bool
	MetricsEnabled   *bool
	MetricsAddr      *string
	LogLevel         *string
}

// ApplyOverrides applies command-line flag overrides to cfg.
func ApplyOverrides(cfg *Config, o Overrides) {
	setIf(&cfg.TaskFlow.APIURL, o.APIURL)
	if o.APITimeout != nil {
		cfg.TaskFlow.Timeout.Duration = *o.APITimeout
	}
	setIf(&cfg.Auth.ProjectURL, o.ProjectURL)
	setIf(&cfg.Auth.RequireToken, o.RequireToken)
	setIf(&cfg.Server.Transport, o.Transport)
	setIf(&cfg.Server.Host, o.Host)
	setIf(&cfg.Server.Port, o.Port)
	setIf(&cfg.Server.BaseURL, o.BaseURL)
	setIf(&cfg.Server.DisableStreaming, o.DisableStreaming)
	setIf(&cfg.Metrics.Enabled, o.MetricsEnabled)
	setIf(&cfg.Metrics.Addr, o.MetricsAddr)
	setIf(&cfg.Logging.Level, o.LogLevel)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Validate reports the first configuration problem found.
func (c *Config) Validate() error {
	if err := validateHTTPURL("taskflow.api_url", c.TaskFlow.APIURL); err != nil {
		return err
	}
	if c.TaskFlow.Timeout.Duration <= 0 {
		return fmt.Errorf("taskflow.timeout must be positive, got %s", c.TaskFlow.Timeout)
	}
	if err := validateHTTPURL("auth.project_url", c.Auth.ProjectURL); err != nil {
		return err
	}
	if c.Auth.SessionTokenTTL.Duration <= 0 {
		return fmt.Errorf("auth.session_token_ttl must be positive, got %s", c.Auth.SessionTokenTTL)
	}

	switch c.Server.Transport {
	case TransportStdio, TransportStreamableHTTP:
	default:
		return fmt.Errorf("unsupported transport %q (supported: %s, %s)", c.Server.Transport, TransportStdio, TransportStreamableHTTP)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.BaseURL != "" {
		if err := validateHTTPURL("server.base_url", c.Server.BaseURL); err != nil {
			return err
		}
	}
	return nil
}

func validateHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: invalid URL %q: %w", field, raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s: URL %q must use http or https", field, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s: URL %q has no host", field, raw)
	}
	return nil
}

// SplitList splits a comma-separated list, trimming whitespace and
// dropping empty entries.
func SplitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
