// ABOUTME: REST handlers for drivers, sessions, assessments, and statistics.
// ABOUTME: The :id path segment accepts a driver UUID, ID prefix, or username.
package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/metrics"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/service"
	"github.com/harperreed/drivewatch/internal/session"
)

// driver resolves the :id parameter, writing the error response on failure.
func (s *Server) driver(c *gin.Context) (*models.Driver, bool) {
	d, err := s.svc.ResolveDriver(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return nil, false
	}
	return d, true
}

// intQuery parses an optional integer query parameter. Missing means zero.
func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func (s *Server) registerDriver(c *gin.Context) {
	var body service.Registration
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid driver payload")
		return
	}
	d, err := s.svc.RegisterDriver(c.Request.Context(), body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (s *Server) getProfile(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	p, err := s.svc.GetProfile(c.Request.Context(), d.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) startSession(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	var body session.StartRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid session payload")
			return
		}
	}
	sess, err := s.svc.StartSession(c.Request.Context(), d.ID, body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (s *Server) endSession(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	sessionID, err := uuid.Parse(c.Param("sessionID"))
	if err != nil {
		badRequest(c, "invalid session id")
		return
	}
	var body session.EndRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid end session payload")
			return
		}
	}
	res, err := s.svc.EndSession(c.Request.Context(), d.ID, sessionID, body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) listSessions(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	sessions, err := s.svc.GetSessionHistory(c.Request.Context(), d.ID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions, "count": len(sessions)})
}

func (s *Server) currentSession(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	cur, err := s.svc.CurrentSession(c.Request.Context(), d.ID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cur)
}

func (s *Server) submitAssessment(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	var body models.Sample
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid assessment payload")
		return
	}
	res, err := s.svc.SubmitAssessment(c.Request.Context(), d.ID, body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) recordHealthUpdate(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	var body session.HealthUpdate
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid health update payload")
		return
	}
	res, err := s.svc.RecordHealthUpdate(c.Request.Context(), d.ID, body)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) reportEmergency(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	var body struct {
		Notes string `json:"notes"`
	}
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, "invalid emergency payload")
			return
		}
	}
	res, err := s.svc.ReportEmergency(c.Request.Context(), d.ID, body.Notes)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

func (s *Server) listHealthRecords(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit")
	if !ok {
		return
	}
	records, err := s.svc.GetHealthHistory(c.Request.Context(), d.ID, limit)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"records": records, "count": len(records)})
}

func (s *Server) getStatistics(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}
	st, err := s.svc.GetStatistics(c.Request.Context(), d.ID, days)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (s *Server) getTrend(c *gin.Context) {
	d, ok := s.driver(c)
	if !ok {
		return
	}
	g, err := metrics.ParseGranularity(c.Query("granularity"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	days, ok := intQuery(c, "days")
	if !ok {
		return
	}
	if days == 0 {
		days = 30
	}
	if days < 1 || days > service.MaxWindowDays {
		s.respondError(c, models.NewValidationError("days", "must be between 1 and %d, got %d", service.MaxWindowDays, days))
		return
	}

	window := metrics.LastDays(days, s.svc.Now(), g)
	buckets := []metrics.Bucket{}
	for b, err := range s.svc.GetTrend(c.Request.Context(), d.ID, window) {
		if err != nil {
			s.respondError(c, err)
			return
		}
		buckets = append(buckets, b)
	}
	c.JSON(http.StatusOK, gin.H{"granularity": g, "buckets": buckets})
}

func (s *Server) listActiveDrivers(c *gin.Context) {
	active, err := s.svc.ListActiveDrivers(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	if active == nil {
		active = []service.ActiveDriver{}
	}
	c.JSON(http.StatusOK, gin.H{"drivers": active, "count": len(active)})
}

func (s *Server) listRecentAlerts(c *gin.Context) {
	var since time.Duration
	if raw := c.Query("since"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			badRequest(c, "since must be a duration such as 24h")
			return
		}
		since = d
	}
	alerts, err := s.svc.ListRecentAlerts(c.Request.Context(), since)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if alerts == nil {
		alerts = []*models.HealthRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"alerts": alerts, "count": len(alerts)})
}
