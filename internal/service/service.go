// ABOUTME: Service is the single entry point transports use for every driver operation.
// ABOUTME: It owns the session manager and aggregator and makes storage errors generic.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/metrics"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/notify"
	"github.com/harperreed/drivewatch/internal/session"
	"github.com/harperreed/drivewatch/internal/storage"
	"go.uber.org/zap"
)

// Service exposes driver, session, and statistics operations.
type Service struct {
	repo       storage.Repository
	sessions   *session.Manager
	aggregator *metrics.Aggregator
	logger     *zap.Logger
	now        func() time.Time
}

// New wires a Service over repo. publisher and logger may be nil.
func New(repo storage.Repository, publisher notify.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		sessions:   session.NewManager(repo, publisher, logger.Named("session")),
		aggregator: metrics.NewAggregator(repo, logger.Named("metrics")),
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the time source for the service and its session manager.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = func() time.Time { return now().UTC() }
	s.sessions.WithClock(now)
	return s
}

// Repository returns the underlying store, for export and import.
func (s *Service) Repository() storage.Repository {
	return s.repo
}

// StartSession opens a driving session.
func (s *Service) StartSession(ctx context.Context, driverID uuid.UUID, req session.StartRequest) (*models.DrivingSession, error) {
	return s.sessions.StartSession(ctx, driverID, req)
}

// SubmitAssessment scores and records one telemetry sample.
func (s *Service) SubmitAssessment(ctx context.Context, driverID uuid.UUID, sample models.Sample) (*session.Result, error) {
	return s.sessions.RecordAssessment(ctx, driverID, sample)
}

// RecordHealthUpdate records a manual tiredness report.
func (s *Service) RecordHealthUpdate(ctx context.Context, driverID uuid.UUID, u session.HealthUpdate) (*session.Result, error) {
	return s.sessions.RecordHealthUpdate(ctx, driverID, u)
}

// ReportEmergency records a driver emergency.
func (s *Service) ReportEmergency(ctx context.Context, driverID uuid.UUID, note string) (*session.Result, error) {
	return s.sessions.ReportEmergency(ctx, driverID, note)
}

// EndSession closes a driving session.
func (s *Service) EndSession(ctx context.Context, driverID, sessionID uuid.UUID, req session.EndRequest) (*session.EndResult, error) {
	return s.sessions.EndSession(ctx, driverID, sessionID, req)
}

// view runs a read and converts storage failures to their generic form.
func (s *Service) view(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	err := s.repo.View(ctx, fn)
	return s.fail(op, err)
}

func (s *Service) update(ctx context.Context, op string, fn func(tx storage.Tx) error) error {
	err := s.repo.Update(ctx, fn)
	return s.fail(op, err)
}

func (s *Service) fail(op string, err error) error {
	wrapped := models.WrapStorage(op, err)
	if wrapped != nil && models.IsStorage(wrapped) {
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
	}
	return wrapped
}

// Now returns the service clock.
func (s *Service) Now() time.Time {
	return s.now()
}
