package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/rtai-hli/gtc-hackathon/pkg/scenario"
	"github.com/rtai-hli/gtc-hackathon/pkg/tools"
)

// Server exposes investigation tools over MCP.
type Server struct {
	mcpServer *server.MCPServer
	names     []string
}

// NewServer creates a new MCP server.
func NewServer(name, version string) *Server {
	return &Server{
		mcpServer: server.NewMCPServer(name, version, server.WithToolCapabilities(false)),
	}
}

// NewScenarioServer creates a server publishing the scenario's tools.
func NewScenarioServer(s *scenario.Scenario, version string) *Server {
	srv := NewServer("warroom-"+s.Name, version)
	for _, spec := range s.Tools() {
		srv.RegisterTool(spec)
	}
	return srv
}

// RegisterTool publishes a tool. Handler errors are reported to the caller as
// tool errors rather than protocol failures.
func (s *Server) RegisterTool(spec scenario.ToolSpec) {
	opts := []mcp.ToolOption{mcp.WithDescription(spec.Description)}
	for _, p := range spec.Params {
		if p.Number {
			opts = append(opts, mcp.WithNumber(p.Name, mcp.Description(p.Description)))
		} else {
			opts = append(opts, mcp.WithString(p.Name, mcp.Description(p.Description)))
		}
	}
	s.mcpServer.AddTool(mcp.NewTool(spec.Name, opts...), handlerFor(spec.Func))
	s.names = append(s.names, spec.Name)
}

// ToolNames lists the registered tools in registration order.
func (s *Server) ToolNames() []string {
	return append([]string(nil), s.names...)
}

// MCPServer returns the underlying server, e.g. for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio serves on stdin/stdout until the input closes.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeHTTP serves the streamable HTTP transport on addr.
func (s *Server) ServeHTTP(addr string) error {
	return server.NewStreamableHTTPServer(s.mcpServer).Start(addr)
}

func handlerFor(fn tools.Func) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := fn(ctx, request.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		text, err := json.Marshal(result)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
		}
		return mcp.NewToolResultStructured(result, string(text)), nil
	}
}
