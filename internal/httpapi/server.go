// ABOUTME: HTTP API server for drivewatch built on gin.
// ABOUTME: Wires middleware, routes, and graceful shutdown around the service facade.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/harperreed/drivewatch/internal/notify"
	"github.com/harperreed/drivewatch/internal/service"
	"go.uber.org/zap"
)

// Timeouts for the underlying http.Server.
const (
	ReadTimeout     = 15 * time.Second
	WriteTimeout    = 30 * time.Second
	IdleTimeout     = 60 * time.Second
	ShutdownTimeout = 30 * time.Second
)

// Server serves the REST API and the live alert stream.
type Server struct {
	router *gin.Engine
	svc    *service.Service
	hub    *notify.Hub
	logger *zap.Logger
}

// NewServer builds the router. hub may be nil, which disables the alert stream.
func NewServer(svc *service.Service, hub *notify.Hub, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(RequestLogger(logger))
	router.Use(gin.Recovery())

	s := &Server{router: router, svc: svc, hub: hub, logger: logger}
	s.setupRoutes()
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)

	api := s.router.Group("/api/v1")
	{
		api.POST("/drivers", s.registerDriver)

		driver := api.Group("/drivers/:id")
		{
			driver.GET("", s.getProfile)
			driver.POST("/sessions", s.startSession)
			driver.GET("/sessions", s.listSessions)
			driver.GET("/sessions/current", s.currentSession)
			driver.POST("/sessions/:sessionID/end", s.endSession)
			driver.POST("/assessments", s.submitAssessment)
			driver.POST("/health-updates", s.recordHealthUpdate)
			driver.POST("/emergency", s.reportEmergency)
			driver.GET("/health-records", s.listHealthRecords)
			driver.GET("/statistics", s.getStatistics)
			driver.GET("/trend", s.getTrend)
		}

		admin := api.Group("/admin")
		{
			admin.GET("/active-drivers", s.listActiveDrivers)
			admin.GET("/alerts", s.listRecentAlerts)
		}

		api.GET("/alerts/stream", s.streamAlerts)
	}
}

// Run listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  ReadTimeout,
		WriteTimeout: WriteTimeout,
		IdleTimeout:  IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("HTTP server exited")
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
}
