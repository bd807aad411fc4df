package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/fwi"
)

var fixture = filepath.Join("..", "..", "data", "mock", "firms_viirs_snpp_bulgaria.csv")

func execute(t *testing.T, cmd *cobra.Command, args ...string) []byte {
	t.Helper()
	t.Setenv("WEATHER_API_KEY", "")
	t.Setenv("REPORTS_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	return out.Bytes()
}

func TestFWICommand(t *testing.T) {
	out := execute(t, fwiCmd(), "--temp", "30", "--rh", "20", "--wind", "25", "--month", "8", "--dmc", "40")

	var body struct {
		Result fwi.Result `json:"result"`
		Level  string     `json:"level"`
	}
	require.NoError(t, json.Unmarshal(out, &body))

	prior := domain.DefaultFireCodeState()
	prior.DMC = 40
	want := fwi.Compute(domain.WeatherObservation{TemperatureC: 30, RelativeHumidity: 20, WindSpeedKPH: 25, Month: 8}, prior)
	assert.Equal(t, want, body.Result)
	assert.Equal(t, fwi.Level(want.RiskPercent), body.Level)
}

func TestClusterCommand_GeoJSON(t *testing.T) {
	out := execute(t, clusterCmd(), fixture)

	fc, err := geojson.UnmarshalFeatureCollection(out)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 7)
}

func TestClusterCommand_JSONWithThreshold(t *testing.T) {
	out := execute(t, clusterCmd(), fixture, "--format", "json", "--threshold", "0")

	var events []domain.ClusterEvent
	require.NoError(t, json.Unmarshal(out, &events))
	assert.Len(t, events, 14)
	for _, ev := range events {
		assert.NotEmpty(t, ev.NearestSettlement)
	}
}

func TestClusterCommand_UnknownFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "error")
	cmd := clusterCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{fixture, "--format", "kml"})
	assert.Error(t, cmd.Execute())
}

func TestSpreadCommand_WithoutWeather(t *testing.T) {
	out := execute(t, spreadCmd(), fixture, "--lat", "42.19", "--lon", "24.83")

	fc, err := geojson.UnmarshalFeatureCollection(out)
	require.NoError(t, err)
	require.Len(t, fc.Features, 6, "arrow and area for each horizon")
	assert.Equal(t, "arrow", fc.Features[0].Properties.MustString("kind"))
	assert.InDelta(t, 0.1, fc.Features[1].Properties.MustFloat64("radius"), 1e-9)
}

func TestSpreadCommand_InvalidHorizon(t *testing.T) {
	cmd := spreadCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{fixture, "--lat", "42.19", "--lon", "24.83", "--horizon", "45"})
	assert.Error(t, cmd.Execute())
}

func TestIngestCommand_DryRun(t *testing.T) {
	out := execute(t, ingestCmd(), fixture, "--dry-run")
	assert.Contains(t, string(out), "14 records would be published to raw-fire-detections")
}
