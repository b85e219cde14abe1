// Package mcp exposes claim operations as Model Context Protocol tools so
// agents can inspect and drive claims without the HTTP API.
package mcp

import (
	"encoding/json"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/fleet-claims/internal/core/ports"
)

// Services are the inbound ports the tools call.
type Services struct {
	Intake   ports.ClaimIntake
	Claims   ports.ClaimReader
	Editor   ports.StageEditor
	Pipeline ports.PipelineStepper
}

type Server struct {
	mcpServer *mcpserver.MCPServer
	services  Services
	logger    *slog.Logger
}

func New(services Services, logger *slog.Logger, version string) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		services: services,
		logger:   logger,
	}
	s.mcpServer = mcpserver.NewMCPServer(
		"fleet-claims",
		version,
		mcpserver.WithToolCapabilities(true),
	)
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("encode result: " + err.Error())
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
