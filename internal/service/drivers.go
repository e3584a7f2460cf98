// ABOUTME: Driver registration, lookup, profiles, and the active-driver listing.
// ABOUTME: Drivers can be referenced by UUID, unique ID prefix, or username.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
	"github.com/harperreed/drivewatch/internal/storage"
	"go.uber.org/zap"
)

// Registration is the input for a new driver.
type Registration struct {
	Username      string `json:"username"`
	FullName      string `json:"full_name,omitempty"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	LicenseNumber string `json:"license_number,omitempty"`
	VehicleType   string `json:"vehicle_type"`
}

// Validate checks required fields and the vehicle type.
func (r Registration) Validate() (models.VehicleType, error) {
	if strings.TrimSpace(r.Username) == "" {
		return "", models.NewValidationError("username", "is required")
	}
	if strings.ContainsAny(r.Username, " \t\n") {
		return "", models.NewValidationError("username", "must not contain whitespace")
	}
	if !strings.Contains(r.Email, "@") {
		return "", models.NewValidationError("email", "%q is not an email address", r.Email)
	}
	vehicle := r.VehicleType
	if vehicle == "" {
		vehicle = string(models.VehicleCar)
	}
	return models.ParseVehicleType(vehicle)
}

// RegisterDriver creates a driver. Username, email, and license number must be unique.
func (s *Service) RegisterDriver(ctx context.Context, r Registration) (*models.Driver, error) {
	vehicle, err := r.Validate()
	if err != nil {
		return nil, err
	}

	d := models.NewDriver(strings.TrimSpace(r.Username), strings.TrimSpace(r.Email), vehicle).
		WithFullName(r.FullName).
		WithPhone(r.Phone).
		WithLicense(r.LicenseNumber)
	d.RegisteredAt = s.now()

	if err := s.update(ctx, "register driver", func(tx storage.Tx) error {
		return tx.CreateDriver(d)
	}); err != nil {
		return nil, err
	}

	s.logger.Info("driver registered",
		zap.String("driver_id", d.ID.String()),
		zap.String("username", d.Username),
		zap.String("vehicle_type", string(d.VehicleType)))
	return d, nil
}

// ResolveDriver looks a driver up by UUID, ID prefix, or username.
func (s *Service) ResolveDriver(ctx context.Context, ref string) (*models.Driver, error) {
	var d *models.Driver
	err := s.view(ctx, "resolve driver", func(tx storage.Tx) error {
		var err error
		d, err = tx.ResolveDriver(ref)
		return err
	})
	return d, err
}

// GetDriver loads a driver by ID.
func (s *Service) GetDriver(ctx context.Context, id uuid.UUID) (*models.Driver, error) {
	var d *models.Driver
	err := s.view(ctx, "get driver", func(tx storage.Tx) error {
		var err error
		d, err = tx.GetDriver(id)
		return err
	})
	return d, err
}

// Profile is a driver with today's rollup and their latest activity.
type Profile struct {
	Driver        *models.Driver         `json:"driver"`
	Today         *models.DailyMetrics   `json:"today"`
	LatestRecord  *models.HealthRecord   `json:"latest_record,omitempty"`
	ActiveSession *models.DrivingSession `json:"active_session,omitempty"`
}

// GetProfile returns the driver with today's metrics (zero if none), latest record, and active session.
func (s *Service) GetProfile(ctx context.Context, driverID uuid.UUID) (*Profile, error) {
	p := &Profile{}
	err := s.view(ctx, "get profile", func(tx storage.Tx) error {
		d, err := tx.GetDriver(driverID)
		if err != nil {
			return err
		}
		p.Driver = d

		today := s.now()
		m, err := tx.GetDailyMetrics(driverID, today)
		switch {
		case errors.Is(err, models.ErrNotFound):
			m = models.NewDailyMetrics(driverID, today)
		case err != nil:
			return err
		}
		p.Today = m

		recs, err := tx.ListHealthRecords(driverID, 1)
		if err != nil {
			return err
		}
		if len(recs) > 0 {
			p.LatestRecord = recs[0]
		}

		active, err := tx.ActiveSession(driverID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return err
		}
		p.ActiveSession = active
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// ActiveDriver pairs an active driver with their open session.
type ActiveDriver struct {
	Driver       *models.Driver         `json:"driver"`
	Session      *models.DrivingSession `json:"session"`
	ElapsedHours float64                `json:"elapsed_hours"`
}

// ListActiveDrivers returns every driver with an open session, ordered by username.
func (s *Service) ListActiveDrivers(ctx context.Context) ([]ActiveDriver, error) {
	var out []ActiveDriver
	now := s.now()
	err := s.view(ctx, "list active drivers", func(tx storage.Tx) error {
		status := models.StatusActive
		drivers, err := tx.ListDrivers(&status)
		if err != nil {
			return err
		}
		for _, d := range drivers {
			sess, err := tx.ActiveSession(d.ID)
			if errors.Is(err, models.ErrNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			out = append(out, ActiveDriver{Driver: d, Session: sess, ElapsedHours: sess.ElapsedHours(now)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CurrentSession is an open session and how long it has run.
type CurrentSession struct {
	Session      *models.DrivingSession `json:"session"`
	ElapsedHours float64                `json:"elapsed_hours"`
	FatigueLevel int                    `json:"fatigue_level"`
}

// CurrentSession returns the driver's open session, or ErrNotFound.
func (s *Service) CurrentSession(ctx context.Context, driverID uuid.UUID) (*CurrentSession, error) {
	var cur *CurrentSession
	err := s.view(ctx, "current session", func(tx storage.Tx) error {
		d, err := tx.GetDriver(driverID)
		if err != nil {
			return err
		}
		sess, err := tx.ActiveSession(driverID)
		if err != nil {
			return err
		}
		cur = &CurrentSession{Session: sess, ElapsedHours: sess.ElapsedHours(s.now()), FatigueLevel: d.FatigueLevel}
		return nil
	})
	return cur, err
}
