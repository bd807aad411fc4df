// Package reports reads citizen fire reports from the reporting service and
// turns them into detections.
package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

// Client fetches user-submitted reports.
type Client struct {
	url          string
	imageBaseURL string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates a reports client. imageBaseURL prefixes stored image filenames.
func NewClient(url, imageBaseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:          url,
		imageBaseURL: strings.TrimRight(imageBaseURL, "/"),
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logger,
	}
}

// FetchDetections returns every report with usable coordinates as a detection.
func (c *Client) FetchDetections(ctx context.Context) ([]domain.FireDetection, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reports request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("reports API error: status %d: %s", resp.StatusCode, body)
	}

	var items []report
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	dets := make([]domain.FireDetection, 0, len(items))
	for _, r := range items {
		d, ok := r.toDetection(c.imageBaseURL)
		if !ok {
			c.logger.Debug("report without usable coordinates skipped")
			continue
		}
		dets = append(dets, d)
	}
	return dets, nil
}

// report accepts the field aliases the reporting service has used over time.
type report struct {
	Lat       flexFloat `json:"lat"`
	Latitude  flexFloat `json:"latitude"`
	Lng       flexFloat `json:"lng"`
	Lon       flexFloat `json:"lon"`
	Longitude flexFloat `json:"longitude"`
	Filename  string    `json:"filename"`
	File      string    `json:"file"`
	CreatedAt string    `json:"createdAt"`
	Created   string    `json:"created_at"`
}

func (r report) toDetection(imageBaseURL string) (domain.FireDetection, bool) {
	lat := firstSet(r.Lat, r.Latitude)
	lon := firstSet(r.Lng, r.Lon, r.Longitude)
	if !isFinite(lat) || !isFinite(lon) {
		return domain.FireDetection{}, false
	}

	var acqDate, acqTime string
	created := r.CreatedAt
	if created == "" {
		created = r.Created
	}
	if ts, err := time.Parse(time.RFC3339, created); err == nil {
		ts = ts.UTC()
		acqDate = ts.Format(time.DateOnly)
		acqTime = ts.Format("1504")
	}

	d := domain.FireDetection{
		Latitude:   lat,
		Longitude:  lon,
		AcqDate:    acqDate,
		AcqTime:    acqTime,
		Satellite:  "REPORT",
		Instrument: "USER",
		Confidence: "n",
		DayNight:   "D",
		IsReport:   true,
	}
	filename := r.Filename
	if filename == "" {
		filename = r.File
	}
	if filename != "" {
		d.ImageURL = imageBaseURL + "/" + filename
	}
	d.ID = reportID(d, filename)
	return d, true
}

// reportNamespace seeds deterministic report IDs.
var reportNamespace = uuid.MustParse("b5a0e0f4-7c1d-4c36-9a52-71d3f0c2e8a9")

func reportID(d domain.FireDetection, filename string) string {
	key := fmt.Sprintf("%.5f|%.5f|%s|%s|%s", d.Latitude, d.Longitude, d.AcqDate, d.AcqTime, filename)
	return "rep-" + uuid.NewSHA1(reportNamespace, []byte(key)).String()
}

// flexFloat decodes a JSON number or numeric string; anything else is NaN.
// null leaves it unset so the next alias is consulted.
type flexFloat struct {
	v   float64
	set bool
}

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	f.set = true
	f.v = math.NaN()
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		f.v = n
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			f.v = v
		}
	}
	return nil
}

func firstSet(vals ...flexFloat) float64 {
	for _, v := range vals {
		if v.set {
			return v.v
		}
	}
	return math.NaN()
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
