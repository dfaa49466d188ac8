package tasks_tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/taskflow/taskflow-mcp/internal/instrumentation"
	"github.com/taskflow/taskflow-mcp/internal/server"
	"github.com/taskflow/taskflow-mcp/internal/taskflow"
	"github.com/taskflow/taskflow-mcp/internal/tools/common"
)

// GetTasksToolName is the MCP name of the task listing tool.
const GetTasksToolName = "get_tasks"

// GetTasksTool returns the get_tasks tool definition.
func GetTasksTool() mcp.Tool {
	return mcp.NewTool(GetTasksToolName,
		mcp.WithDescription("Fetch all tasks from TaskFlow API. Returns a list of tasks for the authenticated user."),
		mcp.WithTitleAnnotation("Get tasks"),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(true),
	)
}

// RegisterTasksTools registers all TaskFlow tools with the MCP server
func RegisterTasksTools(s *mcpserver.MCPServer, sc *server.ServerContext) error {
	if s == nil || sc == nil {
		return fmt.Errorf("mcp server and server context are required")
	}

	s.AddTool(GetTasksTool(),
		common.InstrumentedToolHandler(GetTasksToolName, sc, handleGetTasks(sc)))

	return nil
}

// handleGetTasks fetches the caller's tasks. It never returns a Go error:
// every failure is rendered into the tool result.
func handleGetTasks(sc *server.ServerContext) common.ToolHandler {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		listing, err := sc.Fetcher().Fetch(ctx)
		text := taskflow.Render(listing, err)

		if invocation := instrumentation.InvocationFromContext(ctx); invocation != nil {
			if listing != nil && listing.Email != taskflow.DefaultEmail {
				invocation.WithUser(listing.Email)
			}
			if err != nil {
				kind := taskflow.KindOf(err)
				if kind == "" {
					kind = taskflow.KindTransport
				}
				invocation.WithErrorKind(string(kind))
			}
		}

		if err != nil {
			return mcp.NewToolResultError(text), nil
		}
		return mcp.NewToolResultText(text), nil
	}
}
