package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer creates a configured MCP server with all Sentra tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("sentra", "0.1.0")
	client := NewSentraClient(cfg)
	h := NewHandlers(client)

	s.AddTool(ToolScoreTransaction, h.HandleScoreTransaction)
	s.AddTool(ToolGetDecision, h.HandleGetDecision)
	s.AddTool(ToolListDecisions, h.HandleListDecisions)
	s.AddTool(ToolGetBaseline, h.HandleGetBaseline)
	s.AddTool(ToolCheckHealth, h.HandleCheckHealth)

	return s
}
