package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/gorilla/mux"
	"github.com/paulmach/orb/geojson"

	geojsonadapter "github.com/couchcryptid/wildfire-risk-engine/internal/adapter/geojson"
	"github.com/couchcryptid/wildfire-risk-engine/internal/cluster"
	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/fwi"
	"github.com/couchcryptid/wildfire-risk-engine/internal/risk"
	"github.com/couchcryptid/wildfire-risk-engine/internal/spread"
)

const (
	defaultHorizonMinutes = 60
	defaultHistoryLimit   = 30
	maxHistoryLimit       = 365
)

// DetectionSource provides the detections currently held by the pipeline.
type DetectionSource interface {
	Snapshot() []domain.FireDetection
}

// RiskSource provides the latest city risk results.
type RiskSource interface {
	Latest() ([]risk.CityRisk, time.Time)
	City(name string) (risk.CityRisk, bool)
}

// HistorySource returns stored daily fire-code states for a location, newest first.
type HistorySource interface {
	History(ctx context.Context, location string, limit int) ([]domain.DailyState, error)
}

// API serves the /api/v1 query routes. Weather, Risk and History are optional;
// routes that need a missing dependency answer 503.
type API struct {
	Detections  DetectionSource
	Weather     domain.WeatherProvider
	Risk        RiskSource
	History     HistorySource
	ThresholdKm float64
	RadiusKm    float64
}

// register mounts the API under prefix on the root router. Subrouters answer a
// method mismatch with 404, so routes go on r directly to keep 405.
func (a *API) register(r *mux.Router, prefix string) {
	r.HandleFunc(prefix+"/fwi", a.handleFWIForLocation).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/fwi", a.handleFWICompute).Methods(http.MethodPost)
	r.HandleFunc(prefix+"/clusters", a.handleClusters).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/nearby", a.handleNearby).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/spread", a.handleSpread).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/risk/cities", a.handleCityRisks).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/risk/cities/{name}", a.handleCityRisk).Methods(http.MethodGet)
	r.HandleFunc(prefix+"/risk/cities/{name}/history", a.handleCityHistory).Methods(http.MethodGet)
}

type fwiResponse struct {
	Weather domain.WeatherObservation `json:"weather"`
	Prior   domain.FireCodeState      `json:"prior"`
	Result  fwi.Result                `json:"result"`
	Level   string                    `json:"level"`
	Color   string                    `json:"color"`
}

func newFWIResponse(obs domain.WeatherObservation, prior domain.FireCodeState) fwiResponse {
	res := fwi.Compute(obs, prior)
	return fwiResponse{
		Weather: obs,
		Prior:   prior,
		Result:  res,
		Level:   fwi.Level(res.RiskPercent),
		Color:   fwi.Color(res.RiskPercent),
	}
}

// handleFWIForLocation scores current weather at lat/lon. Optional ffmc, dmc
// and dc parameters override the start-of-season seed.
func (a *API) handleFWIForLocation(w http.ResponseWriter, r *http.Request) {
	if a.Weather == nil {
		writeError(w, http.StatusServiceUnavailable, "weather lookups are disabled")
		return
	}
	lat, lon, err := parseLatLon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	prior, err := parsePrior(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	obs, err := a.Weather.CurrentWeather(r.Context(), lat, lon)
	if err != nil {
		writeError(w, http.StatusBadGateway, "weather lookup failed: "+err.Error())
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, newFWIResponse(obs, prior))
}

type fwiRequest struct {
	Weather domain.WeatherObservation `json:"weather"`
	Prior   *domain.FireCodeState     `json:"prior,omitempty"`
}

// handleFWICompute scores a caller-supplied observation without any lookup.
func (a *API) handleFWICompute(w http.ResponseWriter, r *http.Request) {
	var req fwiRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	prior := domain.DefaultFireCodeState()
	if req.Prior != nil {
		prior = *req.Prior
	}
	sharedobs.WriteJSON(w, http.StatusOK, newFWIResponse(req.Weather, prior))
}

func (a *API) handleClusters(w http.ResponseWriter, r *http.Request) {
	threshold, err := parseOptionalKm(r, "threshold_km", a.ThresholdKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	clusters := cluster.Cluster(a.Detections.Snapshot(), threshold)
	writeGeoJSON(w, geojsonadapter.Clusters(clusters))
}

type nearbyResponse struct {
	Lat        float64                `json:"lat"`
	Lon        float64                `json:"lon"`
	RadiusKm   float64                `json:"radius_km"`
	Aggregate  domain.Aggregate       `json:"aggregate"`
	Detections []domain.FireDetection `json:"detections"`
}

func (a *API) handleNearby(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius, err := parseOptionalKm(r, "radius_km", a.RadiusKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, agg := cluster.AggregateNearby(a.Detections.Snapshot(), lat, lon, radius)
	if items == nil {
		items = []domain.FireDetection{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, nearbyResponse{
		Lat: lat, Lon: lon, RadiusKm: radius, Aggregate: agg, Detections: items,
	})
}

// handleSpread predicts growth of the most recent detection near lat/lon.
// Without weather the minimal fallback prediction is drawn.
func (a *API) handleSpread(w http.ResponseWriter, r *http.Request) {
	lat, lon, err := parseLatLon(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radius, err := parseOptionalKm(r, "radius_km", a.RadiusKm)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	horizon := defaultHorizonMinutes
	if v := r.URL.Query().Get("horizon"); v != "" {
		horizon, err = strconv.Atoi(v)
		if err != nil || !spread.ValidHorizon(horizon) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("horizon must be one of %v minutes", spread.Horizons))
			return
		}
	}

	items, _ := cluster.AggregateNearby(a.Detections.Snapshot(), lat, lon, radius)
	det, ok := cluster.Representative(items)
	if !ok {
		writeError(w, http.StatusNotFound, "no detections within radius")
		return
	}

	var obs *domain.WeatherObservation
	if a.Weather != nil {
		if o, err := a.Weather.CurrentWeather(r.Context(), det.Latitude, det.Longitude); err == nil {
			obs = &o
		}
	}
	p := spread.Predict(det, obs, float64(horizon))
	writeGeoJSON(w, geojsonadapter.Spread(det, p, horizon))
}

type cityRisksResponse struct {
	UpdatedAt *time.Time      `json:"updated_at,omitempty"`
	Cities    []risk.CityRisk `json:"cities"`
}

// handleCityRisks lists the latest city risk, as GeoJSON when format=geojson.
func (a *API) handleCityRisks(w http.ResponseWriter, r *http.Request) {
	if a.Risk == nil {
		writeError(w, http.StatusServiceUnavailable, "city risk is disabled")
		return
	}
	cities, updated := a.Risk.Latest()

	if r.URL.Query().Get("format") == "geojson" {
		markers := make([]geojsonadapter.CityRisk, len(cities))
		for i, c := range cities {
			markers[i] = geojsonadapter.CityRisk{Settlement: c.Settlement, RiskPercent: c.RiskPercent}
		}
		writeGeoJSON(w, geojsonadapter.CityRisks(markers))
		return
	}

	resp := cityRisksResponse{Cities: cities}
	if !updated.IsZero() {
		resp.UpdatedAt = &updated
	}
	sharedobs.WriteJSON(w, http.StatusOK, resp)
}

func (a *API) handleCityRisk(w http.ResponseWriter, r *http.Request) {
	if a.Risk == nil {
		writeError(w, http.StatusServiceUnavailable, "city risk is disabled")
		return
	}
	name := mux.Vars(r)["name"]
	c, ok := a.Risk.City(name)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown city: "+name)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, c)
}

func (a *API) handleCityHistory(w http.ResponseWriter, r *http.Request) {
	if a.History == nil {
		writeError(w, http.StatusServiceUnavailable, "state history is disabled")
		return
	}
	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxHistoryLimit {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
			return
		}
		limit = n
	}

	name := mux.Vars(r)["name"]
	hist, err := a.History.History(r.Context(), name, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if hist == nil {
		hist = []domain.DailyState{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{"city": name, "history": hist})
}

func parseLatLon(r *http.Request) (float64, float64, error) {
	lat, err := parseFloatInRange(r, "lat", -90, 90)
	if err != nil {
		return 0, 0, err
	}
	lon, err := parseFloatInRange(r, "lon", -180, 180)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func parseFloatInRange(r *http.Request, key string, lo, hi float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	v, err := parseFinite(s)
	if err != nil || v < lo || v > hi {
		return 0, fmt.Errorf("%s must be a number between %g and %g", key, lo, hi)
	}
	return v, nil
}

func parseOptionalKm(r *http.Request, key string, fallback float64) (float64, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return fallback, nil
	}
	v, err := parseFinite(s)
	if err != nil || v < 0 || v > 500 {
		return 0, fmt.Errorf("%s must be between 0 and 500", key)
	}
	return v, nil
}

func parsePrior(r *http.Request) (domain.FireCodeState, error) {
	prior := domain.DefaultFireCodeState()
	fields := []struct {
		key string
		dst *float64
	}{
		{"ffmc", &prior.FFMC},
		{"dmc", &prior.DMC},
		{"dc", &prior.DC},
	}
	for _, f := range fields {
		s := r.URL.Query().Get(f.key)
		if s == "" {
			continue
		}
		v, err := parseFinite(s)
		if err != nil || v < 0 {
			return domain.FireCodeState{}, errors.New(f.key + " must be a non-negative number")
		}
		*f.dst = v
	}
	return prior, nil
}

// parseFinite parses a float and rejects NaN and ±Inf, which ParseFloat accepts.
func parseFinite(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%q is not a finite number", s)
	}
	return v, nil
}

func writeError(w http.ResponseWriter, status int, msg string) {
	sharedobs.WriteJSON(w, status, map[string]string{"error": msg})
}

func writeGeoJSON(w http.ResponseWriter, fc *geojson.FeatureCollection) {
	data, err := fc.MarshalJSON()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode geojson")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
