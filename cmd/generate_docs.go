package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cobra"

	"github.com/taskflow/taskflow-mcp/internal/config"
	"github.com/taskflow/taskflow-mcp/internal/server"
	"github.com/taskflow/taskflow-mcp/internal/taskflow"
)

func newGenerateDocsCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for the registered MCP tools.
The tool definitions are read from a server built the same way serve builds
it, so the output always matches what clients see.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tools, err := registeredTools()
			if err != nil {
				return err
			}
			markdown := generateToolsMarkdown(tools)

			if outputFile == "" {
				_, err = io.WriteString(cmd.OutOrStdout(), markdown)
				return err
			}
			if err := os.WriteFile(outputFile, []byte(markdown), 0o644); err != nil {
				return fmt.Errorf("failed to write output file: %w", err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Documentation written to: %s\n", outputFile)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

// registeredTools builds the MCP server the way serve does, without
// credentials or network access, and returns its tool definitions.
func registeredTools() ([]mcp.Tool, error) {
	fetcher, err := taskflow.NewFetcher(taskflow.Config{BaseURL: config.DefaultAPIURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create TaskFlow client: %w", err)
	}
	sc, err := server.NewServerContext(context.Background(), fetcher, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create server context: %w", err)
	}
	defer func() { _ = sc.Shutdown() }()

	mcpSrv, err := newMCPServer(sc, nil)
	if err != nil {
		return nil, err
	}

	var tools []mcp.Tool
	for _, st := range mcpSrv.ListTools() {
		tools = append(tools, st.Tool)
	}
	return tools, nil
}

func generateToolsMarkdown(tools []mcp.Tool) string {
	byCategory := make(map[string][]mcp.Tool)
	for _, tool := range tools {
		category := getCategoryFromToolName(tool.Name)
		byCategory[category] = append(byCategory[category], tool)
	}
	categories := slices.Sorted(maps.Keys(byCategory))

	var sb strings.Builder
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("Tools available when running taskflow-mcp as an MCP server.\n\n")
	sb.WriteString("**Note:** This file is generated from the tool definitions with `taskflow-mcp generate-docs`.\n\n")

	sb.WriteString("## Table of Contents\n\n")
	for _, category := range categories {
		anchor := strings.ToLower(strings.ReplaceAll(category, " ", "-"))
		fmt.Fprintf(&sb, "- [%s](#%s)\n", category, anchor)
	}
	sb.WriteString("\n")

	sb.WriteString("## Authentication\n\n")
	sb.WriteString("Tools act on behalf of the caller. Over HTTP the client's bearer token is forwarded to the TaskFlow API; ")
	sb.WriteString("over stdio the token comes from `TASKFLOW_ACCESS_TOKEN`.\n\n")

	for _, category := range categories {
		categoryTools := byCategory[category]
		slices.SortFunc(categoryTools, func(a, b mcp.Tool) int { return strings.Compare(a.Name, b.Name) })

		fmt.Fprintf(&sb, "## %s\n\n", category)
		for _, tool := range categoryTools {
			sb.WriteString(generateToolMarkdown(tool))
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

func getCategoryFromToolName(name string) string {
	switch name {
	case "get_tasks":
		return "TaskFlow Tools"
	default:
		return "Other"
	}
}

func generateToolMarkdown(tool mcp.Tool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "### %s\n\n", tool.Name)
	if tool.Description != "" {
		fmt.Fprintf(&sb, "%s\n\n", tool.Description)
	}
	if hint := tool.Annotations.ReadOnlyHint; hint != nil && *hint {
		sb.WriteString("*Read-only.*\n\n")
	}

	props := tool.InputSchema.Properties
	if len(props) == 0 {
		sb.WriteString("**Arguments:** none\n\n")
		return sb.String()
	}

	sb.WriteString("**Arguments:**\n")
	for _, name := range slices.Sorted(maps.Keys(props)) {
		prop, ok := props[name].(map[string]any)
		if !ok {
			continue
		}
		required := "optional"
		if slices.Contains(tool.InputSchema.Required, name) {
			required = "required"
		}
		desc, _ := prop["description"].(string)
		if desc == "" {
			propType, _ := prop["type"].(string)
			if propType == "" {
				propType = "any"
			}
			desc = propType + " parameter"
		}
		fmt.Fprintf(&sb, "- `%s` (%s): %s\n", name, required, desc)
	}
	sb.WriteString("\n")

	return sb.String()
}
