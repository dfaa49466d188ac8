package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskflow/taskflow-mcp/internal/config"
)

// clearServeEnv unsets every variable config.Load reads.
func clearServeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TASKFLOW_API_URL", "TASKFLOW_API_TIMEOUT", "TASKFLOW_ACCESS_TOKEN",
		"TASKFLOW_SUPABASE_PROJECT_URL", "MCP_REQUIRE_TOKEN", "MCP_SESSION_TOKEN_TTL",
		"MCP_TRANSPORT", "MCP_HOST", "PORT", "MCP_BASE_URL", "MCP_CORS_ALLOWED_ORIGINS",
		"METRICS_ENABLED", "METRICS_ADDR", "LOG_LEVEL", "LOG_FORMAT",
	} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func parseServeFlags(t *testing.T, args ...string) (*config.Config, error) {
	t.Helper()
	cmd := newServeCmd()
	require.NoError(t, cmd.ParseFlags(args))

	var flags serveFlags
	flags.configPath, _ = cmd.Flags().GetString("config")
	flags.debug, _ = cmd.Flags().GetBool("debug")
	flags.apiURL, _ = cmd.Flags().GetString("api-url")
	flags.apiTimeout, _ = cmd.Flags().GetDuration("api-timeout")
	flags.projectURL, _ = cmd.Flags().GetString("supabase-project-url")
	flags.requireToken, _ = cmd.Flags().GetBool("require-token")
	flags.transport, _ = cmd.Flags().GetString("transport")
	flags.host, _ = cmd.Flags().GetString("host")
	flags.port, _ = cmd.Flags().GetInt("port")
	flags.baseURL, _ = cmd.Flags().GetString("base-url")
	flags.disableStreaming, _ = cmd.Flags().GetBool("disable-streaming")
	flags.metricsEnabled, _ = cmd.Flags().GetBool("metrics-enabled")
	flags.metricsAddr, _ = cmd.Flags().GetString("metrics-addr")

	return loadServeConfig(cmd, &flags)
}

func TestLoadServeConfig_Defaults(t *testing.T) {
	clearServeEnv(t)

	cfg, err := parseServeFlags(t)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3000/api", cfg.TaskFlow.APIURL)
	assert.Equal(t, 10*time.Second, cfg.TaskFlow.Timeout.Duration)
	assert.Equal(t, 3005, cfg.Server.Port)
	assert.Equal(t, config.TransportStreamableHTTP, cfg.Server.Transport)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadServeConfig_FlagsOverrideEnv(t *testing.T) {
	clearServeEnv(t)
	t.Setenv("TASKFLOW_API_URL", "http://env.example.com/api")
	t.Setenv("PORT", "4000")

	cfg, err := parseServeFlags(t, "--api-url", "https://flag.example.com/api", "--debug")
	require.NoError(t, err)

	assert.Equal(t, "https://flag.example.com/api", cfg.TaskFlow.APIURL)
	// unchanged flags leave env values alone
	assert.Equal(t, 4000, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadServeConfig_ConfigFile(t *testing.T) {
	clearServeEnv(t)
	path := filepath.Join(t.TempDir(), "taskflow.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[taskflow]
api_url = "https://file.example.com/api"

[server]
transport = "stdio"
`), 0o600))

	cfg, err := parseServeFlags(t, "--config", path, "--port", "7000")
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.com/api", cfg.TaskFlow.APIURL)
	assert.Equal(t, config.TransportStdio, cfg.Server.Transport)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadServeConfig_Invalid(t *testing.T) {
	clearServeEnv(t)

	_, err := parseServeFlags(t, "--transport", "sse")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")

	_, err = parseServeFlags(t, "--port", "0")
	require.Error(t, err)
}

func TestRegisteredTools(t *testing.T) {
	tools, err := registeredTools()
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "get_tasks", tools[0].Name)
}

func TestGenerateToolsMarkdown(t *testing.T) {
	tools, err := registeredTools()
	require.NoError(t, err)

	markdown := generateToolsMarkdown(tools)

	assert.True(t, strings.HasPrefix(markdown, "# MCP Tools Reference\n"))
	assert.Contains(t, markdown, "- [TaskFlow Tools](#taskflow-tools)")
	assert.Contains(t, markdown, "### get_tasks\n\nFetch all tasks from TaskFlow API.")
	assert.Contains(t, markdown, "*Read-only.*")
	assert.Contains(t, markdown, "**Arguments:** none")
}

func TestGetCategoryFromToolName(t *testing.T) {
	assert.Equal(t, "TaskFlow Tools", getCategoryFromToolName("get_tasks"))
	assert.Equal(t, "Other", getCategoryFromToolName("something_else"))
}

func TestVersionCommand(t *testing.T) {
	SetVersion("1.2.3")
	t.Cleanup(func() { SetVersion("dev") })

	cmd := newVersionCmd()
	var out strings.Builder
	cmd.SetOut(&out)
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "taskflow-mcp version 1.2.3\n", out.String())
}
