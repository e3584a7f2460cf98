// ABOUTME: Session history, health history, and recent alert listings.
// ABOUTME: Listings are most recent first with validated limits.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/storage"
)

const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 1000
	DefaultAlertWindow  = 24 * time.Hour
	DefaultAlertLimit   = 100
)

func historyLimit(limit int) (int, error) {
	switch {
	case limit == 0:
		return DefaultHistoryLimit, nil
	case limit < 0 || limit > MaxHistoryLimit:
		return 0, models.NewValidationError("limit", "must be between 1 and %d, got %d", MaxHistoryLimit, limit)
	}
	return limit, nil
}

// GetSessionHistory returns the driver's sessions, most recent first. Zero limit means the default.
func (s *Service) GetSessionHistory(ctx context.Context, driverID uuid.UUID, limit int) ([]*models.DrivingSession, error) {
	limit, err := historyLimit(limit)
	if err != nil {
		return nil, err
	}

	var out []*models.DrivingSession
	err = s.view(ctx, "get session history", func(tx storage.Tx) error {
		if _, err := tx.GetDriver(driverID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListSessions(driverID, limit)
		return err
	})
	return out, err
}

// GetHealthHistory returns the driver's health records, most recent first.
func (s *Service) GetHealthHistory(ctx context.Context, driverID uuid.UUID, limit int) ([]*models.HealthRecord, error) {
	limit, err := historyLimit(limit)
	if err != nil {
		return nil, err
	}

	var out []*models.HealthRecord
	err = s.view(ctx, "get health history", func(tx storage.Tx) error {
		if _, err := tx.GetDriver(driverID); err != nil {
			return err
		}
		var err error
		out, err = tx.ListHealthRecords(driverID, limit)
		return err
	})
	return out, err
}

// ListRecentAlerts returns alerting records across all drivers within since, newest first.
// Zero since means the last 24 hours.
func (s *Service) ListRecentAlerts(ctx context.Context, since time.Duration) ([]*models.HealthRecord, error) {
	if since < 0 {
		return nil, models.NewValidationError("since", "must not be negative, got %s", since)
	}
	if since == 0 {
		since = DefaultAlertWindow
	}

	cutoff := s.now().Add(-since)
	var out []*models.HealthRecord
	err := s.view(ctx, "list recent alerts", func(tx storage.Tx) error {
		var err error
		out, err = tx.ListAlerts(cutoff, DefaultAlertLimit)
		return err
	})
	return out, err
}
