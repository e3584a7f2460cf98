// ABOUTME: CLI command for starting the HTTP API server.
// ABOUTME: Serves the REST API and websocket alert stream until interrupted.
package main

import (
	"os/signal"
	"syscall"

	"github.com/harperreed/drivewatch/internal/httpapi"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the HTTP API server.

ENDPOINTS:

  GET  /health                                         Liveness check
  POST /api/v1/drivers                                 Register a driver
  GET  /api/v1/drivers/:id                             Driver profile
  POST /api/v1/drivers/:id/sessions                    Start a session
  GET  /api/v1/drivers/:id/sessions                    Session history
  GET  /api/v1/drivers/:id/sessions/current            Open session
  POST /api/v1/drivers/:id/sessions/:sessionID/end     End a session
  POST /api/v1/drivers/:id/assessments                 Score a drowsiness sample
  POST /api/v1/drivers/:id/health-updates              Self-reported tiredness
  POST /api/v1/drivers/:id/emergency                   Report an emergency
  GET  /api/v1/drivers/:id/health-records              Health record history
  GET  /api/v1/drivers/:id/statistics                  Statistics and recommendations
  GET  /api/v1/drivers/:id/trend                       Daily or weekly buckets
  GET  /api/v1/admin/active-drivers                    Drivers with an open session
  GET  /api/v1/admin/alerts                            Recent alerts
  GET  /api/v1/alerts/stream                           Websocket alert stream

When redis_addr is configured, alerts are also published to Redis.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := serveAddr
		if addr == "" {
			addr = cli.cfg.GetHTTPAddr()
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cli.logger.Info("starting http server",
			zap.String("addr", addr),
			zap.String("backend", cli.cfg.GetBackend()),
			zap.Bool("redis", cli.redis != nil))

		server := httpapi.NewServer(cli.svc, cli.hub, cli.logger.Named("http"))
		return server.Run(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config, :8080)")
	rootCmd.AddCommand(serveCmd)
}
