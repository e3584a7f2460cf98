// ABOUTME: Repository and Tx interfaces for driver fatigue data storage.
// ABOUTME: Every multi-entity write happens inside a single Update unit of work.
package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/harperreed/drivewatch/internal/models"
)

// Repository is a transactional store. Implementations: SQLStore (SQLite, Postgres) and BadgerStore.
type Repository interface {
	// View runs fn in a read-only unit of work.
	View(ctx context.Context, fn func(tx Tx) error) error
	// Update runs fn in a read-write unit of work. If fn returns an error nothing is persisted.
	Update(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}

// Tx is the set of operations available inside a unit of work.
// Lookups of missing entities return an error wrapping models.ErrNotFound.
// Uniqueness violations return an error wrapping models.ErrConflict.
type Tx interface {
	// Driver operations
	CreateDriver(d *models.Driver) error
	UpdateDriver(d *models.Driver) error
	GetDriver(id uuid.UUID) (*models.Driver, error)
	ResolveDriver(ref string) (*models.Driver, error)
	ListDrivers(status *models.SessionStatus) ([]*models.Driver, error)

	// Session operations
	CreateSession(s *models.DrivingSession) error
	UpdateSession(s *models.DrivingSession) error
	GetSession(id uuid.UUID) (*models.DrivingSession, error)
	ActiveSession(driverID uuid.UUID) (*models.DrivingSession, error)
	ListSessions(driverID uuid.UUID, limit int) ([]*models.DrivingSession, error)

	// Health record operations
	CreateHealthRecord(r *models.HealthRecord) error
	ListHealthRecords(driverID uuid.UUID, limit int) ([]*models.HealthRecord, error)
	ListAlerts(since time.Time, limit int) ([]*models.HealthRecord, error)

	// Daily metrics operations. Date bounds are inclusive; zero means unbounded.
	GetDailyMetrics(driverID uuid.UUID, day time.Time) (*models.DailyMetrics, error)
	PutDailyMetrics(m *models.DailyMetrics) error
	ListDailyMetrics(driverID uuid.UUID, from, to time.Time) ([]*models.DailyMetrics, error)
}
