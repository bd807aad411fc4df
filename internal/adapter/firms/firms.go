// Package firms reads NASA FIRMS active-fire CSV exports.
package firms

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
)

// BulgariaAreaURL builds the FIRMS area API URL for the VIIRS S-NPP near-real-time
// product over Bulgaria for the last dayRange days.
func BulgariaAreaURL(mapKey string, dayRange int) string {
	return fmt.Sprintf("https://firms.modaps.eosdis.nasa.gov/api/area/csv/%s/VIIRS_SNPP_NRT/22,41,28,44/%d", mapKey, dayRange)
}

// ReadRecords parses a FIRMS CSV export into string records keyed by the header row.
// Blank lines and rows with fewer columns than the header are skipped, as are rows
// without a latitude or longitude.
func ReadRecords(r io.Reader) ([]domain.RawDetectionRecord, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	colIdx := make(map[string]int, len(header))
	for i, h := range header {
		colIdx[strings.TrimSpace(h)] = i
	}

	var recs []domain.RawDetectionRecord
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(row) < len(header) {
			continue
		}
		get := func(col string) string {
			if i, ok := colIdx[col]; ok {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		rec := domain.RawDetectionRecord{
			Latitude:   get("latitude"),
			Longitude:  get("longitude"),
			BrightTI4:  get("bright_ti4"),
			Scan:       get("scan"),
			Track:      get("track"),
			AcqDate:    get("acq_date"),
			AcqTime:    get("acq_time"),
			Satellite:  get("satellite"),
			Instrument: get("instrument"),
			Confidence: get("confidence"),
			Version:    get("version"),
			BrightTI5:  get("bright_ti5"),
			FRP:        get("frp"),
			DayNight:   get("daynight"),
		}
		if rec.Latitude == "" || rec.Longitude == "" {
			continue
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// Detections converts records to detections, dropping rows whose coordinates
// do not parse. It returns the number of dropped rows.
func Detections(recs []domain.RawDetectionRecord) ([]domain.FireDetection, int) {
	dets := make([]domain.FireDetection, 0, len(recs))
	dropped := 0
	for _, rec := range recs {
		d, err := domain.DetectionFromRecord(rec)
		if err != nil {
			dropped++
			continue
		}
		dets = append(dets, d)
	}
	return dets, dropped
}

// Client downloads FIRMS CSV exports.
type Client struct {
	url        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a FIRMS client for a full area API URL.
func NewClient(url string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// FetchRecords downloads and parses the configured export.
func (c *Client) FetchRecords(ctx context.Context) ([]domain.RawDetectionRecord, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firms request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("firms API error: status %d: %s", resp.StatusCode, body)
	}

	recs, err := ReadRecords(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("firms export fetched", "records", len(recs))
	return recs, nil
}

// FetchDetections downloads the export and returns the parsed detections.
func (c *Client) FetchDetections(ctx context.Context) ([]domain.FireDetection, error) {
	recs, err := c.FetchRecords(ctx)
	if err != nil {
		return nil, err
	}
	dets, dropped := Detections(recs)
	if dropped > 0 {
		c.logger.Warn("firms rows with invalid coordinates dropped", "dropped", dropped)
	}
	return dets, nil
}
