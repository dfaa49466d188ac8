package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command for the taskflow-mcp application
var rootCmd = &cobra.Command{
	Use:   "taskflow-mcp",
	Short: "MCP server exposing TaskFlow tasks to AI assistants",
	Long: `taskflow-mcp is a Model Context Protocol server with a single tool,
get_tasks, which lists the authenticated user's tasks from the TaskFlow API.

It can run over:
  - streamable HTTP (default), forwarding each client's bearer token
  - stdio, using a token from configuration`,
	SilenceUsage: true,
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "taskflow-mcp version %s\n" .Version}}`)

	// If no subcommand is provided, run the serve command by default
	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}
