// ABOUTME: Alert tier evaluation for fatigue scores.
// ABOUTME: Maps a score plus driving context to a tier and a driver-facing recommendation.
package alert

import (
	"fmt"

	"github.com/harperreed/drivewatch/internal/models"
)

// Tier thresholds, checked top-down.
const (
	CriticalThreshold = 80
	WarningThreshold  = 60
	CautionThreshold  = 40
	InfoThreshold     = 20

	// CautionHours escalates to caution regardless of score.
	CautionHours = 6.0
)

// Context is optional information that refines the recommendation.
type Context struct {
	HoursDriven float64
	Yawn        bool
}

// Assessment is the outcome of evaluating one score.
type Assessment struct {
	Tier           models.AlertTier `json:"tier"`
	Recommendation string           `json:"recommendation"`
	AlertSent      bool             `json:"alert_sent"`
}

// Evaluate classifies a fatigue score. Every critical or warning result sets AlertSent.
func Evaluate(score int, ctx Context) Assessment {
	tier := Classify(score, ctx.HoursDriven)
	return Assessment{
		Tier:           tier,
		Recommendation: Recommend(tier, score, ctx),
		AlertSent:      tier.SendsAlert(),
	}
}

// Classify returns the tier for a score and hours driven.
func Classify(score int, hoursDriven float64) models.AlertTier {
	switch {
	case score >= CriticalThreshold:
		return models.TierCritical
	case score >= WarningThreshold:
		return models.TierWarning
	case score >= CautionThreshold || hoursDriven > CautionHours:
		return models.TierCaution
	case score >= InfoThreshold:
		return models.TierInfo
	default:
		return models.TierSafe
	}
}

// Recommend builds the message shown to the driver.
func Recommend(tier models.AlertTier, score int, ctx Context) string {
	switch tier {
	case models.TierCritical:
		return "CRITICAL: You appear to be extremely drowsy! PULL OVER IMMEDIATELY and rest for at least 15-20 minutes. Turn off the engine and get proper sleep."
	case models.TierWarning:
		return "WARNING: Signs of drowsiness detected! Find a safe place to park soon and take a 10-15 minute break. Stay hydrated."
	case models.TierCaution:
		if ctx.HoursDriven > CautionHours {
			return fmt.Sprintf("REMINDER: You've been driving for %.1f hours. Plan a break at the next safe stop.", ctx.HoursDriven)
		}
		return "CAUTION: Early signs of fatigue. Plan a break within the next 30 minutes."
	case models.TierInfo:
		if ctx.Yawn {
			return "Yawning detected. Consider taking a short break or pulling over for a few minutes."
		}
		return "Stay alert! Maintain focus on the road and keep monitoring your drowsiness levels."
	default:
		return "You appear to be alert. Continue driving safely and take breaks every 2 hours."
	}
}

// EmergencyRecommendation accompanies driver-initiated emergency reports.
const EmergencyRecommendation = "EMERGENCY reported. Stop the vehicle in a safe place, turn on hazard lights, and wait for assistance."
