// ABOUTME: Driver model with vehicle, session, and health status enums.
// ABOUTME: Drivers are the root entity owning sessions, health records, and daily metrics.
package models

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VehicleType is the class of vehicle a driver operates.
type VehicleType string

const (
	VehicleCar   VehicleType = "car"
	VehicleTruck VehicleType = "truck"
	VehicleBus   VehicleType = "bus"
)

// AllVehicleTypes lists the accepted vehicle types.
var AllVehicleTypes = []VehicleType{VehicleCar, VehicleTruck, VehicleBus}

// ParseVehicleType maps a case-insensitive name to a VehicleType.
func ParseVehicleType(s string) (VehicleType, error) {
	for _, vt := range AllVehicleTypes {
		if strings.EqualFold(string(vt), s) {
			return vt, nil
		}
	}
	return "", NewValidationError("vehicle_type", "unknown vehicle type %q", s)
}

// SessionStatus tracks whether a driver is currently on a trip.
type SessionStatus string

const (
	StatusIdle   SessionStatus = "idle"
	StatusActive SessionStatus = "active"
)

// HealthStatus is the coarse bucket derived from a driver's current fatigue.
type HealthStatus string

const (
	HealthGood    HealthStatus = "good"
	HealthWarning HealthStatus = "warning"
	HealthAlert   HealthStatus = "alert"
)

// Driver holds identity and rolling fatigue state.
type Driver struct {
	ID               uuid.UUID     `json:"id" yaml:"id"`
	Username         string        `json:"username" yaml:"username"`
	FullName         string        `json:"full_name,omitempty" yaml:"full_name,omitempty"`
	Email            string        `json:"email" yaml:"email"`
	Phone            string        `json:"phone,omitempty" yaml:"phone,omitempty"`
	LicenseNumber    string        `json:"license_number,omitempty" yaml:"license_number,omitempty"`
	VehicleType      VehicleType   `json:"vehicle_type" yaml:"vehicle_type"`
	RegisteredAt     time.Time     `json:"registered_at" yaml:"registered_at"`
	TotalHours       float64       `json:"total_driving_hours" yaml:"total_driving_hours"`
	FatigueLevel     int           `json:"fatigue_level" yaml:"fatigue_level"`
	LastAssessmentAt *time.Time    `json:"last_assessment_at,omitempty" yaml:"last_assessment_at,omitempty"`
	Status           SessionStatus `json:"status" yaml:"status"`
	HealthStatus     HealthStatus  `json:"health_status" yaml:"health_status"`
}

// NewDriver creates an idle, healthy Driver with a generated UUID.
func NewDriver(username, email string, vehicle VehicleType) *Driver {
	return &Driver{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		VehicleType:  vehicle,
		RegisteredAt: time.Now().UTC(),
		Status:       StatusIdle,
		HealthStatus: HealthGood,
	}
}

// WithFullName sets the display name.
func (d *Driver) WithFullName(name string) *Driver {
	d.FullName = name
	return d
}

// WithPhone sets the contact phone number.
func (d *Driver) WithPhone(phone string) *Driver {
	d.Phone = phone
	return d
}

// WithLicense sets the license number.
func (d *Driver) WithLicense(license string) *Driver {
	d.LicenseNumber = license
	return d
}

// ApplyFatigue records the outcome of an assessment on the driver.
func (d *Driver) ApplyFatigue(level int, tier AlertTier, at time.Time) {
	d.FatigueLevel = level
	d.HealthStatus = tier.HealthStatus()
	ts := at
	d.LastAssessmentAt = &ts
}
