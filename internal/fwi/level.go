package fwi

import (
	"fmt"
	"math"
)

// Risk levels, ordered by increasing danger.
const (
	LevelLow        = "low"
	LevelModerate   = "moderate"
	LevelHigh       = "high"
	LevelVeryHigh   = "very_high"
	LevelActiveFire = "active_fire"
)

// Level classifies a risk percentage:
//
//	<25 low | <50 moderate | <75 high | <100 very high | 100 active fire
func Level(riskPercent float64) string {
	switch {
	case riskPercent < 25:
		return LevelLow
	case riskPercent < 50:
		return LevelModerate
	case riskPercent < 75:
		return LevelHigh
	case riskPercent < 100:
		return LevelVeryHigh
	default:
		return LevelActiveFire
	}
}

// Color maps a risk percentage onto a green-to-red ramp, e.g. "rgb(128, 128, 0)" at 50%.
func Color(riskPercent float64) string {
	c := clamp(riskPercent, 0, 100) / 100
	red := int(math.Round(c * 255))
	green := int(math.Round((1 - c) * 255))
	return fmt.Sprintf("rgb(%d, %d, 0)", red, green)
}
