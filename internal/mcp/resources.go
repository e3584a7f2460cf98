// ABOUTME: MCP resource implementations for fleet-wide views.
// ABOUTME: Provides drivewatch://drivers/active and drivewatch://alerts/recent.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	activeDriversURI = "drivewatch://drivers/active"
	recentAlertsURI  = "drivewatch://alerts/recent"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(&mcp.Resource{
		URI:         activeDriversURI,
		Name:        "Active Drivers",
		Description: "Drivers with an open session and how long they have been driving",
		MIMEType:    "application/json",
	}, s.handleActiveDriversResource)

	s.mcpServer.AddResource(&mcp.Resource{
		URI:         recentAlertsURI,
		Name:        "Recent Alerts",
		Description: "Alerting health records from the last 24 hours",
		MIMEType:    "application/json",
	}, s.handleRecentAlertsResource)
}

// Resource handlers

func (s *Server) handleActiveDriversResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	active, err := s.svc.ListActiveDrivers(ctx)
	if err != nil {
		return nil, err
	}

	return jsonResource(activeDriversURI, map[string]any{
		"generated_at": s.svc.Now().Format(time.RFC3339),
		"drivers":      active,
		"count":        len(active),
	})
}

func (s *Server) handleRecentAlertsResource(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	alerts, err := s.svc.ListRecentAlerts(ctx, 0)
	if err != nil {
		return nil, err
	}

	return jsonResource(recentAlertsURI, map[string]any{
		"generated_at": s.svc.Now().Format(time.RFC3339),
		"alerts":       alerts,
		"count":        len(alerts),
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
