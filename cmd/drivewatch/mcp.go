// ABOUTME: CLI command for starting MCP server.
// ABOUTME: Runs stdio-based MCP server for AI assistant integration.
package main

import (
	"os/signal"
	"syscall"

	"github.com/harperreed/drivewatch/internal/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server",
	Long: `Start the Model Context Protocol (MCP) server for AI assistant integration.

The server communicates via stdin/stdout. Add it to an MCP client config:

  {
    "mcpServers": {
      "drivewatch": {
        "command": "drivewatch",
        "args": ["mcp"]
      }
    }
  }

AVAILABLE TOOLS:

  register_driver       Register a new driver
  start_session         Start a driving session
  submit_assessment     Score a drowsiness sample
  record_health_update  Record self-reported tiredness
  report_emergency      Report an emergency
  end_session           End a driving session
  get_profile           Driver profile with today's metrics
  list_sessions         Session history
  list_health_records   Health record history
  get_statistics        Statistics and recommendations
  list_active_drivers   Drivers with an open session
  list_recent_alerts    Alerts across all drivers

AVAILABLE RESOURCES:

  drivewatch://drivers/active   Active drivers
  drivewatch://alerts/recent    Alerts from the last 24 hours`,
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := mcp.NewServer(cli.svc)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		return server.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
