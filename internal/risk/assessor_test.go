package risk

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/fwi"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
)

var (
	sofia = domain.Settlement{Name: "Sofia", Lat: 42.6977, Lon: 23.3219}
	varna = domain.Settlement{Name: "Varna", Lat: 43.2141, Lon: 27.9147}
	ruse  = domain.Settlement{Name: "Ruse", Lat: 43.8356, Lon: 25.9657}

	hotDry = domain.WeatherObservation{TemperatureC: 34, RelativeHumidity: 18, WindSpeedKPH: 25, Month: 8}
)

type stubWeather struct {
	byLat map[float64]domain.WeatherObservation
}

func (s stubWeather) CurrentWeather(_ context.Context, lat, _ float64) (domain.WeatherObservation, error) {
	obs, ok := s.byLat[lat]
	if !ok {
		return domain.WeatherObservation{}, errors.New("weather unavailable")
	}
	return obs, nil
}

type memStore struct {
	mu    sync.Mutex
	saved map[string]map[string]domain.FireCodeState
}

func newMemStore() *memStore {
	return &memStore{saved: make(map[string]map[string]domain.FireCodeState)}
}

func (m *memStore) Load(_ context.Context, location string, before time.Time) (domain.FireCodeState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := before.Format(time.DateOnly)
	best := ""
	for d := range m.saved[location] {
		if d < cutoff && d > best {
			best = d
		}
	}
	if best == "" {
		return domain.FireCodeState{}, false, nil
	}
	return m.saved[location][best], true, nil
}

func (m *memStore) Save(_ context.Context, location string, day time.Time, st domain.FireCodeState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saved[location] == nil {
		m.saved[location] = make(map[string]domain.FireCodeState)
	}
	m.saved[location][day.Format(time.DateOnly)] = st
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAssessor(store domain.FireCodeStore, clock clockwork.Clock, metrics *observability.Metrics) *Assessor {
	weather := stubWeather{byLat: map[float64]domain.WeatherObservation{
		sofia.Lat: hotDry,
		ruse.Lat:  {TemperatureC: 22, RelativeHumidity: 70, WindSpeedKPH: 5, RainMM: 4, Month: 8},
	}}
	return NewAssessor(weather, store, []domain.Settlement{sofia, varna, ruse}, clock, metrics, discardLogger())
}

func TestAssessor_Run(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.August, 2, 12, 0, 0, 0, time.UTC))
	metrics := observability.NewMetricsForTesting()
	store := newMemStore()
	a := newTestAssessor(store, clock, metrics)

	results := a.Run(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, "Sofia", results[0].Settlement.Name)
	assert.Equal(t, "2025-08-02", results[0].Day)
	require.NotNil(t, results[0].Result)
	want := fwi.ComputeFromWeather(hotDry)
	assert.InDelta(t, want.RiskPercent, results[0].RiskPercent, 1e-9)
	assert.Equal(t, fwi.Level(want.RiskPercent), results[0].Level)
	assert.False(t, results[0].Fallback)

	assert.Equal(t, "Varna", results[1].Settlement.Name)
	assert.True(t, results[1].Fallback)
	assert.Zero(t, results[1].RiskPercent)
	assert.Nil(t, results[1].Result)
	assert.Equal(t, "weather unavailable", results[1].Error)

	assert.Less(t, results[2].RiskPercent, results[0].RiskPercent)

	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.RiskComputations.WithLabelValues("computed")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.RiskComputations.WithLabelValues("fallback")), 0)
	assert.InDelta(t, want.RiskPercent, testutil.ToFloat64(metrics.CityRisk.WithLabelValues("Sofia")), 1e-9)

	assert.Contains(t, store.saved, "Sofia")
	assert.NotContains(t, store.saved, "Varna", "fallback must not overwrite state")

	latest, at := a.Latest()
	assert.Len(t, latest, 3)
	assert.Equal(t, clock.Now(), at)
}

func TestAssessor_CarriesStateAcrossDays(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.August, 2, 12, 0, 0, 0, time.UTC))
	store := newMemStore()
	a := newTestAssessor(store, clock, observability.NewMetricsForTesting())

	day1 := a.Run(context.Background())[0]

	clock.Advance(24 * time.Hour)
	day2 := a.Run(context.Background())[0]

	want := fwi.Compute(hotDry, day1.Result.State())
	assert.Equal(t, want, *day2.Result)
	assert.Greater(t, day2.Result.DMC, day1.Result.DMC, "drought codes accumulate on dry days")
}

func TestAssessor_RerunSameDayIsIdempotent(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.Date(2025, time.August, 2, 12, 0, 0, 0, time.UTC))
	a := newTestAssessor(newMemStore(), clock, observability.NewMetricsForTesting())

	first := a.Run(context.Background())[0]
	clock.Advance(time.Hour)
	second := a.Run(context.Background())[0]

	assert.Equal(t, *first.Result, *second.Result)
}

func TestAssessor_NilStoreUsesSeed(t *testing.T) {
	a := newTestAssessor(nil, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	r := a.Assess(context.Background(), sofia, time.Date(2025, time.August, 2, 0, 0, 0, 0, time.UTC))
	require.NotNil(t, r.Result)
	assert.Equal(t, fwi.ComputeFromWeather(hotDry), *r.Result)
}

func TestAssessor_City(t *testing.T) {
	a := newTestAssessor(nil, clockwork.NewFakeClock(), observability.NewMetricsForTesting())

	_, ok := a.City("Ruse")
	assert.False(t, ok, "no results before the first run")

	a.Run(context.Background())
	r, ok := a.City("Ruse")
	require.True(t, ok)
	assert.Equal(t, ruse, r.Settlement)

	_, ok = a.City("Atlantis")
	assert.False(t, ok)
}
