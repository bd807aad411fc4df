//go:build weatherapi

package weatherapi

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests hit the real weatherapi.com API and require a valid WEATHER_API_KEY env var.
// Run with: go test -tags=weatherapi ./internal/adapter/weatherapi/ -v -count=1

func TestSmoke_CurrentWeatherSofia(t *testing.T) {
	key := os.Getenv("WEATHER_API_KEY")
	if key == "" {
		t.Fatal("WEATHER_API_KEY must be set to run smoke tests")
	}
	c := NewClient(key, 10*time.Second, testMetrics(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	obs, err := c.CurrentWeather(context.Background(), 42.6977, 23.3219)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, obs.Month, 1)
	assert.LessOrEqual(t, obs.Month, 12)
	assert.GreaterOrEqual(t, obs.RelativeHumidity, 0.0)
	assert.NotEmpty(t, obs.WindDirection)
}
