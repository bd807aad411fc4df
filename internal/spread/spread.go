// Package spread estimates how far and in which direction a detected fire will
// grow over a short time horizon.
package spread

import (
	"math"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

const baseSpeedKPH = 0.2

// Horizons are the prediction windows offered to clients, in minutes.
var Horizons = []int{30, 60, 120}

// compassDegrees maps 16-point compass sectors to bearings.
var compassDegrees = map[string]float64{
	"N": 0, "NNE": 22.5, "NE": 45, "ENE": 67.5,
	"E": 90, "ESE": 112.5, "SE": 135, "SSE": 157.5,
	"S": 180, "SSW": 202.5, "SW": 225, "WSW": 247.5,
	"W": 270, "WNW": 292.5, "NW": 315, "NNW": 337.5,
}

// fallback is returned when no weather is available.
var fallback = domain.SpreadPrediction{DirectionDeg: 0, SpeedKPH: 0.5, RadiusKm: 0.1, AreaKm2: 0.03}

// Predict returns the spread of det over horizonMinutes under the given weather.
// A nil weather yields a fixed minimal prediction.
func Predict(det domain.FireDetection, weather *domain.WeatherObservation, horizonMinutes float64) domain.SpreadPrediction {
	if weather == nil {
		return fallback
	}

	windFactor := math.Min(weather.WindSpeedKPH/20, 2)
	tempFactor := math.Max((weather.TemperatureC-15)/20, 0.5)
	humidityFactor := math.Max((100-weather.RelativeHumidity)/50, 0.5)
	frpFactor := math.Min(det.FRP/10, 2)

	speed := baseSpeedKPH * windFactor * tempFactor * humidityFactor * frpFactor
	radius := speed * horizonMinutes / 60

	return domain.SpreadPrediction{
		DirectionDeg: Direction(weather.WindDirection),
		SpeedKPH:     speed,
		RadiusKm:     radius,
		AreaKm2:      math.Pi * radius * radius,
	}
}

// Direction converts a compass sector such as "NNE" to degrees. Unknown sectors map to north.
func Direction(sector string) float64 {
	return compassDegrees[sector]
}

// ValidHorizon reports whether minutes is one of the offered Horizons.
func ValidHorizon(minutes int) bool {
	for _, h := range Horizons {
		if h == minutes {
			return true
		}
	}
	return false
}
