package weatherapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/observability"
)

// localtimeLayout is the format of location.localtime in weatherapi.com responses.
const localtimeLayout = "2006-01-02 15:04"

// Client implements domain.WeatherProvider using the weatherapi.com current conditions API.
type Client struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a weatherapi.com client.
func NewClient(apiKey string, timeout time.Duration, metrics *observability.Metrics, logger *slog.Logger) *Client {
	return &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: "https://api.weatherapi.com/v1",
		clock:   clockwork.NewRealClock(),
		metrics: metrics,
		logger:  logger,
	}
}

// CurrentWeather fetches the current conditions at a coordinate.
func (c *Client) CurrentWeather(ctx context.Context, lat, lon float64) (domain.WeatherObservation, error) {
	params := url.Values{
		"key": {c.apiKey},
		"q":   {fmt.Sprintf("%.4f,%.4f", lat, lon)},
		"aqi": {"no"},
	}
	fullURL := c.baseURL + "/current.json?" + params.Encode()

	start := c.clock.Now()
	obs, err := c.doRequest(ctx, fullURL)
	c.metrics.WeatherAPIDuration.Observe(c.clock.Since(start).Seconds())
	if err != nil {
		c.metrics.WeatherRequests.WithLabelValues("error").Inc()
		return domain.WeatherObservation{}, err
	}
	c.metrics.WeatherRequests.WithLabelValues("success").Inc()
	return obs, nil
}

func (c *Client) doRequest(ctx context.Context, fullURL string) (domain.WeatherObservation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return domain.WeatherObservation{}, fmt.Errorf("weather API error: status %d: %s", resp.StatusCode, body)
	}

	var wr response
	if err := json.NewDecoder(resp.Body).Decode(&wr); err != nil {
		return domain.WeatherObservation{}, fmt.Errorf("decode response: %w", err)
	}
	return c.toObservation(wr), nil
}

func (c *Client) toObservation(wr response) domain.WeatherObservation {
	obs := domain.WeatherObservation{
		TemperatureC:     wr.Current.TempC,
		RelativeHumidity: wr.Current.Humidity,
		WindSpeedKPH:     wr.Current.WindKPH,
		WindDirection:    wr.Current.WindDir,
	}
	if wr.Current.PrecipMM != nil {
		obs.RainMM = *wr.Current.PrecipMM
	}

	local, err := time.Parse(localtimeLayout, wr.Location.Localtime)
	if err != nil {
		c.logger.Debug("unparseable localtime, using current month",
			"localtime", wr.Location.Localtime, "location", wr.Location.Name)
		obs.Month = int(c.clock.Now().Month())
	} else {
		obs.Month = int(local.Month())
	}
	return obs
}

// weatherapi.com response types.

type response struct {
	Location location `json:"location"`
	Current  current  `json:"current"`
}

type location struct {
	Name      string `json:"name"`
	Localtime string `json:"localtime"` // "2025-08-01 14:30"
}

type current struct {
	TempC    float64  `json:"temp_c"`
	Humidity float64  `json:"humidity"`
	WindKPH  float64  `json:"wind_kph"`
	WindDir  string   `json:"wind_dir"`
	PrecipMM *float64 `json:"precip_mm"`
}
