package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment
// cannot leak into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TASKFLOW_API_URL", "TASKFLOW_API_TIMEOUT", "TASKFLOW_ACCESS_TOKEN",
		"TASKFLOW_SUPABASE_PROJECT_URL", "MCP_REQUIRE_TOKEN", "MCP_SESSION_TOKEN_TTL",
		"MCP_TRANSPORT", "MCP_HOST", "PORT", "MCP_BASE_URL", "MCP_CORS_ALLOWED_ORIGINS",
		"METRICS_ENABLED", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskflow-mcp.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:3000/api", cfg.TaskFlow.APIURL)
	assert.Equal(t, 10*time.Second, cfg.TaskFlow.Timeout.Duration)
	assert.Equal(t, "http://127.0.0.1:54321/", cfg.Auth.ProjectURL)
	assert.True(t, cfg.Auth.RequireToken)
	assert.Equal(t, 3005, cfg.Server.Port)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
	assert.Equal(t, []string{"*"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.Server.CORS.MaxAge.Duration)
	assert.Equal(t, "http://localhost:3005", cfg.Server.PublicBaseURL())
	assert.Equal(t, "0.0.0.0:3005", cfg.Server.ListenAddr())
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
[taskflow]
api_url = "https://taskflow.example.com/api"
timeout = "3s"

[auth]
project_url = "https://abc.supabase.co"
session_token_ttl = "15m"

[server]
transport = "stdio"
port = 4000

[server.cors]
allowed_origins = ["https://app.example.com"]

[logging]
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://taskflow.example.com/api", cfg.TaskFlow.APIURL)
	assert.Equal(t, 3*time.Second, cfg.TaskFlow.Timeout.Duration)
	assert.Equal(t, "https://abc.supabase.co", cfg.Auth.ProjectURL)
	assert.Equal(t, 15*time.Minute, cfg.Auth.SessionTokenTTL.Duration)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.CORS.AllowedOrigins)
	assert.Equal(t, "json", cfg.Logging.Format)
	// untouched keys keep their defaults
	assert.True(t, cfg.Auth.RequireToken)
	assert.Equal(t, DefaultMetricsAddr, cfg.Metrics.Addr)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
[taskflow]
api_url = "https://from-file.example.com/api"

[server]
port = 4000
`)

	t.Setenv("TASKFLOW_API_URL", "https://from-env.example.com/api")
	t.Setenv("PORT", "8080")
	t.Setenv("TASKFLOW_SUPABASE_PROJECT_URL", "https://env.supabase.co")
	t.Setenv("MCP_CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("MCP_REQUIRE_TOKEN", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://from-env.example.com/api", cfg.TaskFlow.APIURL)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://env.supabase.co", cfg.Auth.ProjectURL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.CORS.AllowedOrigins)
	assert.False(t, cfg.Auth.RequireToken)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		file string
	}{
		{name: "bad port", env: map[string]string{"PORT": "http"}},
		{name: "bad timeout", env: map[string]string{"TASKFLOW_API_TIMEOUT": "soon"}},
		{name: "bad bool", env: map[string]string{"METRICS_ENABLED": "maybe"}},
		{name: "bad toml", file: "[taskflow\napi_url = 1"},
		{name: "bad duration in file", file: "[taskflow]\ntimeout = \"ten\""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := ""
			if tt.file != "" {
				path = writeConfig(t, tt.file)
			}
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := NewDefaultConfig()

	apiURL := "http://tasks.internal/api"
	port := 9000
	requireToken := false
	timeout := 2 * time.Second

	ApplyOverrides(cfg, Overrides{
		APIURL:       &apiURL,
		Port:         &port,
		RequireToken: &requireToken,
		APITimeout:   &timeout,
	})

	assert.Equal(t, apiURL, cfg.TaskFlow.APIURL)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.False(t, cfg.Auth.RequireToken)
	assert.Equal(t, 2*time.Second, cfg.TaskFlow.Timeout.Duration)
	// nil overrides leave defaults alone
	assert.Equal(t, DefaultHost, cfg.Server.Host)
	assert.Equal(t, TransportStreamableHTTP, cfg.Server.Transport)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "api url without scheme", mutate: func(c *Config) { c.TaskFlow.APIURL = "localhost:3000/api" }, wantErr: true},
		{name: "api url ftp", mutate: func(c *Config) { c.TaskFlow.APIURL = "ftp://example.com" }, wantErr: true},
		{name: "project url empty", mutate: func(c *Config) { c.Auth.ProjectURL = "" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.TaskFlow.Timeout.Duration = 0 }, wantErr: true},
		{name: "zero session ttl", mutate: func(c *Config) { c.Auth.SessionTokenTTL.Duration = 0 }, wantErr: true},
		{name: "unknown transport", mutate: func(c *Config) { c.Server.Transport = "sse" }, wantErr: true},
		{name: "port zero", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: true},
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: true},
		{name: "bad base url", mutate: func(c *Config) { c.Server.BaseURL = "mcp.example.com" }, wantErr: true},
		{name: "https base url", mutate: func(c *Config) { c.Server.BaseURL = "https://mcp.example.com/" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerConfig_PublicBaseURL(t *testing.T) {
	s := ServerConfig{Port: 3005, BaseURL: "https://mcp.example.com/"}
	assert.Equal(t, "https://mcp.example.com", s.PublicBaseURL())
}

func TestSplitList(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"", nil},
		{"a", []string{"a"}},
		{"a, b ,c", []string{"a", "b", "c"}},
		{" , ,", nil},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}
