package studybridge

import (
	"log/slog"

	internalmcp "github.com/wagiedev/study-bridge-go/internal/mcp"
)

// MCPServer serves the bridge's study operations as MCP tools.
// Call Run with a transport such as &mcp.StdioTransport{}.
type MCPServer = internalmcp.Server

// MCP tool names.
const (
	ToolGenerateSubtopics = internalmcp.ToolGenerateSubtopics
	ToolAskQuestion       = internalmcp.ToolAskQuestion
	ToolGenerateMCQ       = internalmcp.ToolGenerateMCQ
)

// NewMCPServer exposes b as the tools generate_subtopics, ask_question and
// generate_mcq. Bridge failures are returned as error results.
//
// Example:
//
//	server := studybridge.NewMCPServer(b, "study-bridge", version, log)
//	if err := server.Run(ctx, &mcp.StdioTransport{}); err != nil {
//	    log.Error("mcp server stopped", "error", err)
//	}
func NewMCPServer(b Bridge, name, version string, log *slog.Logger) *MCPServer {
	return internalmcp.NewServer(log, b, name, version)
}
