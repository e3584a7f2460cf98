// ABOUTME: AlertTier enum shared by the alert engine, records, and drivers.
// ABOUTME: Tiers are ordered from safe to critical.
package models

// AlertTier classifies a fatigue score.
type AlertTier string

const (
	TierSafe     AlertTier = "safe"
	TierInfo     AlertTier = "info"
	TierCaution  AlertTier = "caution"
	TierWarning  AlertTier = "warning"
	TierCritical AlertTier = "critical"
)

// AllAlertTiers lists tiers in ascending severity.
var AllAlertTiers = []AlertTier{TierSafe, TierInfo, TierCaution, TierWarning, TierCritical}

// IsValidAlertTier checks if a string names a known tier.
func IsValidAlertTier(s string) bool {
	for _, t := range AllAlertTiers {
		if string(t) == s {
			return true
		}
	}
	return false
}

// SendsAlert reports whether records at this tier are flagged alert_sent.
func (t AlertTier) SendsAlert() bool {
	switch t {
	case TierCritical, TierWarning:
		return true
	default:
		return false
	}
}

// HealthStatus maps the tier onto the driver's health bucket.
func (t AlertTier) HealthStatus() HealthStatus {
	switch t {
	case TierCritical:
		return HealthAlert
	case TierWarning, TierCaution:
		return HealthWarning
	default:
		return HealthGood
	}
}
