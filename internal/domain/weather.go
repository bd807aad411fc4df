package domain

import (
	"context"
	"time"
)

// WeatherObservation holds the noon conditions that drive the fire-danger model.
type WeatherObservation struct {
	TemperatureC     float64 `json:"temp_c"`
	RelativeHumidity float64 `json:"humidity"`
	WindSpeedKPH     float64 `json:"wind_kph"` // at 10 m
	WindDirection    string  `json:"wind_dir"` // 16-point compass, e.g. "NNE"
	RainMM           float64 `json:"precip_mm"`
	Month            int     `json:"month"` // 1–12
}

// FireCodeState is the set of moisture codes carried from one day to the next.
type FireCodeState struct {
	FFMC float64 `json:"ffmc"`
	DMC  float64 `json:"dmc"`
	DC   float64 `json:"dc"`
}

// DefaultFireCodeState returns the moderate start-of-season seed.
func DefaultFireCodeState() FireCodeState {
	return FireCodeState{FFMC: 85, DMC: 6, DC: 15}
}

// DailyState is a stored FireCodeState with the calendar day (YYYY-MM-DD) it was produced for.
type DailyState struct {
	Day   string        `json:"day"`
	State FireCodeState `json:"state"`
}

// WeatherProvider looks up current conditions for a coordinate.
type WeatherProvider interface {
	CurrentWeather(ctx context.Context, lat, lon float64) (WeatherObservation, error)
}

// FireCodeStore persists FireCodeState per location between daily updates.
type FireCodeStore interface {
	// Load returns the most recent state for the location stored for a calendar
	// day before the given day, and false if there is none.
	Load(ctx context.Context, location string, before time.Time) (FireCodeState, bool, error)
	// Save records the state produced for the given day.
	Save(ctx context.Context, location string, day time.Time, state FireCodeState) error
}
