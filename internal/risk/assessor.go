// Package risk computes the daily fire-danger score for a list of settlements,
// carrying moisture codes from one day to the next.
package risk

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/fwi"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
)

const maxConcurrentLookups = 8

// CityRisk is the outcome of one settlement's daily update. When the weather
// lookup fails, RiskPercent is 0, Fallback is true and no state is saved.
type CityRisk struct {
	Settlement  domain.Settlement          `json:"settlement"`
	Day         string                     `json:"day"`
	RiskPercent float64                    `json:"risk_percent"`
	Level       string                     `json:"level"`
	Result      *fwi.Result                `json:"result,omitempty"`
	Weather     *domain.WeatherObservation `json:"weather,omitempty"`
	Fallback    bool                       `json:"fallback"`
	Error       string                     `json:"error,omitempty"`
}

// Assessor runs the daily update for every city and keeps the latest results.
type Assessor struct {
	weather domain.WeatherProvider
	store   domain.FireCodeStore
	cities  []domain.Settlement
	clock   clockwork.Clock
	metrics *observability.Metrics
	logger  *slog.Logger

	mu        sync.RWMutex
	latest    []CityRisk
	updatedAt time.Time
}

// NewAssessor creates an Assessor. A nil store starts every city from the
// default seed; a nil clock uses the real clock.
func NewAssessor(weather domain.WeatherProvider, store domain.FireCodeStore, cities []domain.Settlement,
	clock clockwork.Clock, metrics *observability.Metrics, logger *slog.Logger) *Assessor {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Assessor{
		weather: weather,
		store:   store,
		cities:  cities,
		clock:   clock,
		metrics: metrics,
		logger:  logger,
	}
}

// Run assesses all cities for today and replaces the latest results.
// Results keep the order of the city list.
func (a *Assessor) Run(ctx context.Context) []CityRisk {
	day := a.clock.Now().UTC()
	out := make([]CityRisk, len(a.cities))

	sem := make(chan struct{}, maxConcurrentLookups)
	var wg sync.WaitGroup
	for i, city := range a.cities {
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			out[i] = a.Assess(ctx, city, day)
		}()
	}
	wg.Wait()

	a.mu.Lock()
	a.latest = out
	a.updatedAt = day
	a.mu.Unlock()

	fallbacks := 0
	for _, r := range out {
		if r.Fallback {
			fallbacks++
		}
	}
	a.logger.Info("city risk updated", "cities", len(out), "fallbacks", fallbacks, "day", day.Format(time.DateOnly))
	return out
}

// Assess advances one city's codes for day using current weather.
func (a *Assessor) Assess(ctx context.Context, city domain.Settlement, day time.Time) CityRisk {
	cr := CityRisk{Settlement: city, Day: day.Format(time.DateOnly)}

	obs, err := a.weather.CurrentWeather(ctx, city.Lat, city.Lon)
	if err != nil {
		a.logger.Warn("weather lookup failed, risk falls back to 0", "city", city.Name, "error", err)
		a.metrics.RiskComputations.WithLabelValues("fallback").Inc()
		a.metrics.CityRisk.WithLabelValues(city.Name).Set(0)
		cr.Fallback = true
		cr.Error = err.Error()
		cr.Level = fwi.Level(0)
		return cr
	}

	prior := a.priorState(ctx, city.Name, day)
	res := fwi.Compute(obs, prior)

	if a.store != nil {
		if err := a.store.Save(ctx, city.Name, day, res.State()); err != nil {
			a.logger.Error("save fire-code state failed", "city", city.Name, "error", err)
		}
	}

	a.metrics.RiskComputations.WithLabelValues("computed").Inc()
	a.metrics.CityRisk.WithLabelValues(city.Name).Set(res.RiskPercent)

	cr.RiskPercent = res.RiskPercent
	cr.Level = fwi.Level(res.RiskPercent)
	cr.Result = &res
	cr.Weather = &obs
	return cr
}

func (a *Assessor) priorState(ctx context.Context, city string, day time.Time) domain.FireCodeState {
	if a.store == nil {
		return domain.DefaultFireCodeState()
	}
	st, ok, err := a.store.Load(ctx, city, day)
	if err != nil {
		a.logger.Warn("load fire-code state failed, using seed", "city", city, "error", err)
		return domain.DefaultFireCodeState()
	}
	if !ok {
		return domain.DefaultFireCodeState()
	}
	return st
}

// Latest returns a copy of the most recent results and when they were computed.
// The time is zero before the first run.
func (a *Assessor) Latest() ([]CityRisk, time.Time) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]CityRisk, len(a.latest))
	copy(out, a.latest)
	return out, a.updatedAt
}

// City returns the latest result for a city by name.
func (a *Assessor) City(name string) (CityRisk, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for _, r := range a.latest {
		if r.Settlement.Name == name {
			return r, true
		}
	}
	return CityRisk{}, false
}
