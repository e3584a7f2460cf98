// ABOUTME: MCP server setup for the drivewatch fatigue service.
// ABOUTME: Wraps the MCP server around the service facade.
package mcp

import (
	"context"
	"errors"

	"github.com/harperreed/drivewatch/internal/service"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Version is reported to MCP clients.
const Version = "1.0.0"

// Server wraps the MCP server with service access.
type Server struct {
	mcpServer *mcp.Server
	svc       *service.Service
}

// NewServer creates a new MCP server over svc.
func NewServer(svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, errors.New("mcp: service is required")
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "drivewatch",
			Version: Version,
		},
		nil,
	)

	s := &Server{
		mcpServer: mcpServer,
		svc:       svc,
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Serve starts the MCP server using stdio transport.
func (s *Server) Serve(ctx context.Context) error {
	return s.mcpServer.Run(ctx, &mcp.StdioTransport{})
}
