// ABOUTME: Deterministic fatigue scoring from a single telemetry sample.
// ABOUTME: Weighted sum of eye closure, blink rate, head pose, yawning, and hours driven.
package fatigue

import (
	"math"

	"github.com/harperreed/drivewatch/internal/models"
)

// Score bounds.
const (
	MinScore = 0
	MaxScore = 100
)

const (
	eyeWeight = 0.4

	blinkBandLow     = 8.0
	blinkBandHigh    = 20.0
	blinkMidpoint    = 15.0
	blinkOutOfBand   = 25.0
	blinkInBandScale = 10.0

	headDownPoints   = 20.0
	headTiltedPoints = 10.0

	yawnPoints = 15.0
)

// hoursTable is checked top-down; the first threshold exceeded wins.
var hoursTable = []struct {
	over   float64
	points float64
}{
	{8, 25},
	{6, 20},
	{4, 15},
	{2, 10},
}

// Validate rejects samples outside the accepted ranges.
func Validate(s models.Sample) error {
	if math.IsNaN(s.EyeClosurePct) || s.EyeClosurePct < 0 || s.EyeClosurePct > 100 {
		return models.NewValidationError("eye_closure_pct", "must be between 0 and 100, got %v", s.EyeClosurePct)
	}
	if math.IsNaN(s.BlinkFreq) || s.BlinkFreq < 0 {
		return models.NewValidationError("blink_frequency", "must not be negative, got %v", s.BlinkFreq)
	}
	if math.IsNaN(s.HoursDriven) || s.HoursDriven < 0 {
		return models.NewValidationError("hours_driven", "must not be negative, got %v", s.HoursDriven)
	}
	if _, err := models.ParseHeadPosition(string(s.HeadPosition)); err != nil {
		return err
	}
	return nil
}

// Score converts a sample into a fatigue score in [0,100].
func Score(s models.Sample) (int, error) {
	if err := Validate(s); err != nil {
		return 0, err
	}

	total := s.EyeClosurePct*eyeWeight +
		blinkPoints(s.BlinkFreq) +
		headPoints(s.HeadPosition) +
		HoursPoints(s.HoursDriven)
	if s.YawnDetected {
		total += yawnPoints
	}

	return Clamp(total), nil
}

// Clamp rounds a raw score and bounds it to [0,100].
func Clamp(raw float64) int {
	v := int(math.Round(raw))
	if v < MinScore {
		return MinScore
	}
	if v > MaxScore {
		return MaxScore
	}
	return v
}

// HoursPoints is the contribution of elapsed driving time.
func HoursPoints(hours float64) float64 {
	for _, step := range hoursTable {
		if hours > step.over {
			return step.points
		}
	}
	return 0
}

func blinkPoints(freq float64) float64 {
	if freq < blinkBandLow || freq > blinkBandHigh {
		return blinkOutOfBand
	}
	return math.Abs(freq-blinkMidpoint) / blinkMidpoint * blinkInBandScale
}

func headPoints(pos models.HeadPosition) float64 {
	switch pos {
	case models.HeadDown:
		return headDownPoints
	case models.HeadTilted:
		return headTiltedPoints
	default:
		return 0
	}
}
