// ABOUTME: MCP tool implementations for drivers, sessions, and assessments.
// ABOUTME: Drivers are referenced by UUID, ID prefix, or username.
package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/service"
	"github.com/harperreed/drivewatch/internal/session"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "register_driver",
		Description: "Register a new driver (username, email, and vehicle type car, truck, or bus)",
	}, s.handleRegisterDriver)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "start_session",
		Description: "Start a driving session for a driver",
	}, s.handleStartSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "submit_assessment",
		Description: "Score one drowsiness telemetry sample and record it",
	}, s.handleSubmitAssessment)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "record_health_update",
		Description: "Record a self-reported tiredness level (0-10) with optional sleep and rest hours",
	}, s.handleRecordHealthUpdate)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "report_emergency",
		Description: "Report a driver emergency; always raises an alert",
	}, s.handleReportEmergency)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "end_session",
		Description: "End a driving session, crediting its hours and folding it into daily metrics",
	}, s.handleEndSession)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_profile",
		Description: "Get a driver's profile with today's metrics, latest record, and active session",
	}, s.handleGetProfile)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_sessions",
		Description: "List a driver's driving sessions, most recent first",
	}, s.handleListSessions)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_health_records",
		Description: "List a driver's health records, most recent first",
	}, s.handleListHealthRecords)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "get_statistics",
		Description: "Get driving statistics, fatigue trend, and recommendations for a window of days",
	}, s.handleGetStatistics)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_active_drivers",
		Description: "List drivers who currently have an open driving session",
	}, s.handleListActiveDrivers)

	mcp.AddTool(s.mcpServer, &mcp.Tool{
		Name:        "list_recent_alerts",
		Description: "List alerting health records across all drivers",
	}, s.handleListRecentAlerts)
}

// Tool input/output types

type registerDriverInput struct {
	Username      string `json:"username" jsonschema:"Unique username"`
	Email         string `json:"email" jsonschema:"Unique email address"`
	VehicleType   string `json:"vehicle_type,omitempty" jsonschema:"car, truck, or bus (default car)"`
	FullName      string `json:"full_name,omitempty" jsonschema:"Display name"`
	Phone         string `json:"phone,omitempty" jsonschema:"Contact phone number"`
	LicenseNumber string `json:"license_number,omitempty" jsonschema:"Unique license number"`
}

type driverOutput struct {
	ID           string `json:"id"`
	Username     string `json:"username"`
	VehicleType  string `json:"vehicle_type"`
	Status       string `json:"status"`
	HealthStatus string `json:"health_status"`
	FatigueLevel int    `json:"fatigue_level"`
	Message      string `json:"message"`
}

type driverInput struct {
	Driver string `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
}

type startSessionInput struct {
	Driver         string `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	Location       string `json:"location,omitempty" jsonschema:"Start location"`
	Weather        string `json:"weather,omitempty" jsonschema:"Weather conditions"`
	RoadConditions string `json:"road_conditions,omitempty" jsonschema:"Road conditions"`
}

type sessionOutput struct {
	ID            string  `json:"id"`
	DriverID      string  `json:"driver_id"`
	StartedAt     string  `json:"started_at"`
	EndedAt       string  `json:"ended_at,omitempty"`
	DurationHours float64 `json:"duration_hours"`
	DistanceKm    float64 `json:"distance_km"`
	AvgFatigue    float64 `json:"average_fatigue"`
	MaxFatigue    int     `json:"max_fatigue"`
	AlertCount    int     `json:"alert_count"`
	BreaksTaken   int     `json:"breaks_taken"`
	TotalHours    float64 `json:"driver_total_hours,omitempty"`
	Message       string  `json:"message"`
}

type assessmentInput struct {
	Driver         string  `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	EyeClosurePct  float64 `json:"eye_closure_pct" jsonschema:"Percentage of time eyes were closed (0-100)"`
	BlinkFrequency float64 `json:"blink_frequency" jsonschema:"Blinks per minute"`
	HeadPosition   string  `json:"head_position,omitempty" jsonschema:"normal, tilted, or down (default normal)"`
	YawnDetected   bool    `json:"yawn_detected,omitempty" jsonschema:"Whether a yawn was detected"`
	HoursDriven    float64 `json:"hours_driven,omitempty" jsonschema:"Hours driven so far"`
	DriverResponse string  `json:"driver_response,omitempty" jsonschema:"acknowledged, dismissed, or took_break"`
}

type healthUpdateInput struct {
	Driver         string   `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	TirednessLevel int      `json:"tiredness_level" jsonschema:"Self-reported tiredness from 0 to 10"`
	SleepHours     *float64 `json:"sleep_hours,omitempty" jsonschema:"Hours slept last night"`
	HoursSinceRest *float64 `json:"hours_since_rest,omitempty" jsonschema:"Hours since the last rest"`
	Notes          string   `json:"notes,omitempty" jsonschema:"Free-text notes"`
}

type emergencyInput struct {
	Driver string `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	Notes  string `json:"notes,omitempty" jsonschema:"What happened"`
}

type assessmentOutput struct {
	RecordID       string `json:"record_id"`
	Kind           string `json:"kind"`
	FatigueLevel   int    `json:"fatigue_level"`
	Tier           string `json:"tier"`
	Recommendation string `json:"recommendation"`
	AlertSent      bool   `json:"alert_sent"`
	SessionID      string `json:"session_id,omitempty"`
	Message        string `json:"message"`
}

type endSessionInput struct {
	Driver     string   `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	SessionID  string   `json:"session_id" jsonschema:"Session ID to end"`
	Location   string   `json:"location,omitempty" jsonschema:"End location"`
	DistanceKm float64  `json:"distance_km,omitempty" jsonschema:"Distance driven in km"`
	AvgFatigue *float64 `json:"average_fatigue,omitempty" jsonschema:"Client-computed average fatigue (0-100), overrides the server value"`
	MaxFatigue *int     `json:"max_fatigue,omitempty" jsonschema:"Client-computed max fatigue (0-100), overrides the server value"`
	Alerts     *int     `json:"total_alerts,omitempty" jsonschema:"Client-computed alert count, overrides the server value"`
	Breaks     *int     `json:"breaks_taken,omitempty" jsonschema:"Client-computed break count, overrides the server value"`
}

type listInput struct {
	Driver string `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	Limit  int    `json:"limit,omitempty" jsonschema:"Max results (default 20)"`
}

type statisticsInput struct {
	Driver string `json:"driver" jsonschema:"Driver ID, ID prefix, or username"`
	Days   int    `json:"days,omitempty" jsonschema:"Window size in days, 1-365 (default 7)"`
}

type recentAlertsInput struct {
	Hours float64 `json:"hours,omitempty" jsonschema:"Look-back window in hours (default 24)"`
}

func newDriverOutput(d *models.Driver, msg string) driverOutput {
	return driverOutput{
		ID:           d.ID.String(),
		Username:     d.Username,
		VehicleType:  string(d.VehicleType),
		Status:       string(d.Status),
		HealthStatus: string(d.HealthStatus),
		FatigueLevel: d.FatigueLevel,
		Message:      msg,
	}
}

func newSessionOutput(sess *models.DrivingSession, msg string) sessionOutput {
	out := sessionOutput{
		ID:            sess.ID.String(),
		DriverID:      sess.DriverID.String(),
		StartedAt:     sess.StartedAt.Format(time.RFC3339),
		DurationHours: sess.DurationHours,
		DistanceKm:    sess.DistanceKm,
		AvgFatigue:    sess.AvgFatigue,
		MaxFatigue:    sess.MaxFatigue,
		AlertCount:    sess.AlertCount,
		BreaksTaken:   sess.BreaksTaken,
		Message:       msg,
	}
	if sess.EndedAt != nil {
		out.EndedAt = sess.EndedAt.Format(time.RFC3339)
	}
	return out
}

func newAssessmentOutput(res *session.Result) assessmentOutput {
	r := res.Record
	out := assessmentOutput{
		RecordID:       r.ID.String(),
		Kind:           string(r.Kind),
		FatigueLevel:   r.FatigueLevel,
		Tier:           string(r.Tier),
		Recommendation: r.Recommendation,
		AlertSent:      r.AlertSent,
		Message:        fmt.Sprintf("Fatigue %d (%s): %s", r.FatigueLevel, r.Tier, r.Recommendation),
	}
	if res.Session != nil {
		out.SessionID = res.Session.ID.String()
	}
	return out
}

func (s *Server) resolve(ctx context.Context, ref string) (*models.Driver, error) {
	if ref == "" {
		return nil, models.NewValidationError("driver", "is required")
	}
	return s.svc.ResolveDriver(ctx, ref)
}

// Tool handlers

func (s *Server) handleRegisterDriver(ctx context.Context, req *mcp.CallToolRequest, input registerDriverInput) (*mcp.CallToolResult, driverOutput, error) {
	d, err := s.svc.RegisterDriver(ctx, service.Registration{
		Username:      input.Username,
		FullName:      input.FullName,
		Email:         input.Email,
		Phone:         input.Phone,
		LicenseNumber: input.LicenseNumber,
		VehicleType:   input.VehicleType,
	})
	if err != nil {
		return nil, driverOutput{}, err
	}
	return nil, newDriverOutput(d, fmt.Sprintf("Registered %s (ID: %s)", d.Username, d.ID.String()[:8])), nil
}

func (s *Server) handleStartSession(ctx context.Context, req *mcp.CallToolRequest, input startSessionInput) (*mcp.CallToolResult, sessionOutput, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, sessionOutput{}, err
	}
	sess, err := s.svc.StartSession(ctx, d.ID, session.StartRequest{
		Location:       input.Location,
		Weather:        input.Weather,
		RoadConditions: input.RoadConditions,
	})
	if err != nil {
		return nil, sessionOutput{}, err
	}
	return nil, newSessionOutput(sess, fmt.Sprintf("Started session %s for %s", sess.ID.String()[:8], d.Username)), nil
}

func (s *Server) handleSubmitAssessment(ctx context.Context, req *mcp.CallToolRequest, input assessmentInput) (*mcp.CallToolResult, assessmentOutput, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, assessmentOutput{}, err
	}
	res, err := s.svc.SubmitAssessment(ctx, d.ID, models.Sample{
		EyeClosurePct: input.EyeClosurePct,
		BlinkFreq:     input.BlinkFrequency,
		HeadPosition:  models.HeadPosition(input.HeadPosition),
		YawnDetected:  input.YawnDetected,
		HoursDriven:   input.HoursDriven,
		Response:      models.DriverResponse(input.DriverResponse),
	})
	if err != nil {
		return nil, assessmentOutput{}, err
	}
	return nil, newAssessmentOutput(res), nil
}

func (s *Server) handleRecordHealthUpdate(ctx context.Context, req *mcp.CallToolRequest, input healthUpdateInput) (*mcp.CallToolResult, assessmentOutput, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, assessmentOutput{}, err
	}
	res, err := s.svc.RecordHealthUpdate(ctx, d.ID, session.HealthUpdate{
		SleepHours:     input.SleepHours,
		TirednessLevel: input.TirednessLevel,
		HoursSinceRest: input.HoursSinceRest,
		Notes:          input.Notes,
	})
	if err != nil {
		return nil, assessmentOutput{}, err
	}
	return nil, newAssessmentOutput(res), nil
}

func (s *Server) handleReportEmergency(ctx context.Context, req *mcp.CallToolRequest, input emergencyInput) (*mcp.CallToolResult, assessmentOutput, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, assessmentOutput{}, err
	}
	res, err := s.svc.ReportEmergency(ctx, d.ID, input.Notes)
	if err != nil {
		return nil, assessmentOutput{}, err
	}
	return nil, newAssessmentOutput(res), nil
}

func (s *Server) handleEndSession(ctx context.Context, req *mcp.CallToolRequest, input endSessionInput) (*mcp.CallToolResult, sessionOutput, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, sessionOutput{}, err
	}
	sessionID, err := uuid.Parse(input.SessionID)
	if err != nil {
		return nil, sessionOutput{}, models.NewValidationError("session_id", "%q is not a UUID", input.SessionID)
	}

	res, err := s.svc.EndSession(ctx, d.ID, sessionID, session.EndRequest{
		Location:   input.Location,
		DistanceKm: input.DistanceKm,
		Summary: session.Summary{
			AvgFatigue: input.AvgFatigue,
			MaxFatigue: input.MaxFatigue,
			Alerts:     input.Alerts,
			Breaks:     input.Breaks,
		},
	})
	if err != nil {
		return nil, sessionOutput{}, err
	}

	out := newSessionOutput(res.Session, fmt.Sprintf("Ended session %s after %.2f hours", res.Session.ID.String()[:8], res.Session.DurationHours))
	out.TotalHours = res.Driver.TotalHours
	return nil, out, nil
}

func (s *Server) handleGetProfile(ctx context.Context, req *mcp.CallToolRequest, input driverInput) (*mcp.CallToolResult, any, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, nil, err
	}
	p, err := s.svc.GetProfile(ctx, d.ID)
	if err != nil {
		return nil, nil, err
	}
	return nil, p, nil
}

func (s *Server) handleListSessions(ctx context.Context, req *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, any, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, nil, err
	}
	sessions, err := s.svc.GetSessionHistory(ctx, d.ID, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	if len(sessions) == 0 {
		return nil, map[string]any{"message": "No sessions found."}, nil
	}
	return nil, map[string]any{"sessions": sessions, "count": len(sessions)}, nil
}

func (s *Server) handleListHealthRecords(ctx context.Context, req *mcp.CallToolRequest, input listInput) (*mcp.CallToolResult, any, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, nil, err
	}
	records, err := s.svc.GetHealthHistory(ctx, d.ID, input.Limit)
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, map[string]any{"message": "No health records found."}, nil
	}
	return nil, map[string]any{"records": records, "count": len(records)}, nil
}

func (s *Server) handleGetStatistics(ctx context.Context, req *mcp.CallToolRequest, input statisticsInput) (*mcp.CallToolResult, any, error) {
	d, err := s.resolve(ctx, input.Driver)
	if err != nil {
		return nil, nil, err
	}
	st, err := s.svc.GetStatistics(ctx, d.ID, input.Days)
	if err != nil {
		return nil, nil, err
	}
	return nil, st, nil
}

func (s *Server) handleListActiveDrivers(ctx context.Context, req *mcp.CallToolRequest, input struct{}) (*mcp.CallToolResult, any, error) {
	active, err := s.svc.ListActiveDrivers(ctx)
	if err != nil {
		return nil, nil, err
	}
	if len(active) == 0 {
		return nil, map[string]any{"message": "No active drivers."}, nil
	}
	return nil, map[string]any{"drivers": active, "count": len(active)}, nil
}

func (s *Server) handleListRecentAlerts(ctx context.Context, req *mcp.CallToolRequest, input recentAlertsInput) (*mcp.CallToolResult, any, error) {
	since := time.Duration(input.Hours * float64(time.Hour))
	alerts, err := s.svc.ListRecentAlerts(ctx, since)
	if err != nil {
		return nil, nil, err
	}
	if len(alerts) == 0 {
		return nil, map[string]any{"message": "No recent alerts."}, nil
	}
	return nil, map[string]any{"alerts": alerts, "count": len(alerts)}, nil
}
