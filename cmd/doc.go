// Package cmd implements the command-line interface for taskflow-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server (default when no subcommand is given)
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
package cmd
