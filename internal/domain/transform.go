package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMissingCoordinates is returned for records without a usable latitude/longitude.
var ErrMissingCoordinates = errors.New("missing coordinates")

// ParseRawEvent deserializes a RawEvent's value into a FireDetection.
// It expects the flat CSV-style JSON produced by the collector service.
func ParseRawEvent(raw RawEvent) (FireDetection, error) {
	var rec RawDetectionRecord
	if err := json.Unmarshal(raw.Value, &rec); err != nil {
		return FireDetection{}, fmt.Errorf("parse raw event: %w", err)
	}
	det, err := DetectionFromRecord(rec)
	if err != nil {
		return FireDetection{}, fmt.Errorf("parse raw event: %w", err)
	}
	return det, nil
}

// DetectionFromRecord converts a string-typed feed row into a FireDetection.
// Numeric columns that are empty or malformed become 0; coordinates are required.
func DetectionFromRecord(rec RawDetectionRecord) (FireDetection, error) {
	lat, errLat := strconv.ParseFloat(strings.TrimSpace(rec.Latitude), 64)
	lon, errLon := strconv.ParseFloat(strings.TrimSpace(rec.Longitude), 64)
	if errLat != nil || errLon != nil || !isFinite(lat) || !isFinite(lon) {
		return FireDetection{}, ErrMissingCoordinates
	}

	acqDate := strings.TrimSpace(rec.AcqDate)
	acqTime := normalizeHHMM(rec.AcqTime)
	satellite := strings.TrimSpace(rec.Satellite)

	return FireDetection{
		ID:         generateID(lat, lon, acqDate, acqTime, satellite),
		Latitude:   lat,
		Longitude:  lon,
		BrightTI4:  parseFloatOrZero(rec.BrightTI4),
		BrightTI5:  parseFloatOrZero(rec.BrightTI5),
		FRP:        parseFloatOrZero(rec.FRP),
		Scan:       parseFloatOrZero(rec.Scan),
		Track:      parseFloatOrZero(rec.Track),
		AcqDate:    acqDate,
		AcqTime:    acqTime,
		Satellite:  satellite,
		Instrument: strings.TrimSpace(rec.Instrument),
		Confidence: normalizeConfidence(rec.Confidence),
		Version:    strings.TrimSpace(rec.Version),
		DayNight:   normalizeDayNight(rec.DayNight),
	}, nil
}

// AcquiredAt combines the acquisition date and HHMM time into a UTC timestamp.
// Returns zero time when the date is missing or malformed.
func (d FireDetection) AcquiredAt() time.Time {
	day, err := time.Parse(time.DateOnly, d.AcqDate)
	if err != nil {
		return time.Time{}
	}
	return parseHHMM(day, d.AcqTime)
}

// NewClusterEvent stamps a cluster with its nearest settlement and processing time.
func NewClusterEvent(c FireCluster, nearest *Settlement, distanceKm float64) ClusterEvent {
	ev := ClusterEvent{Cluster: c, ProcessedAt: processedAt()}
	if nearest != nil {
		ev.NearestSettlement = nearest.Name
		ev.SettlementKm = math.Round(distanceKm*100) / 100
	}
	return ev
}

// SerializeClusterEvent marshals a ClusterEvent into an OutputEvent keyed by cluster ID.
func SerializeClusterEvent(ev ClusterEvent) (OutputEvent, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return OutputEvent{}, fmt.Errorf("serialize cluster event: %w", err)
	}
	return OutputEvent{
		Key:   []byte(ev.Cluster.ID),
		Value: data,
		Headers: map[string]string{
			"detection_count": strconv.Itoa(ev.Cluster.Summary.Count),
			"processed_at":    ev.ProcessedAt.Format(time.RFC3339),
		},
	}, nil
}

// parseFloatOrZero parses a string as float64, returning 0 on failure.
func parseFloatOrZero(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0
	}
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// normalizeConfidence maps VIIRS letters, spelled-out classes and MODIS
// percentages onto "h", "n" or "l". Unrecognized values pass through lowercased.
func normalizeConfidence(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "h", "high":
		return "h"
	case "n", "nominal":
		return "n"
	case "l", "low":
		return "l"
	}
	if pct, err := strconv.ParseFloat(value, 64); err == nil {
		switch {
		case pct >= 80:
			return "h"
		case pct >= 30:
			return "n"
		default:
			return "l"
		}
	}
	return value
}

func normalizeDayNight(value string) string {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "D":
		return "D"
	case "N":
		return "N"
	default:
		return ""
	}
}

// normalizeHHMM zero-pads three-digit times ("930" → "0930").
func normalizeHHMM(hhmm string) string {
	hhmm = strings.TrimSpace(hhmm)
	if len(hhmm) > 0 && len(hhmm) < 4 {
		return strings.Repeat("0", 4-len(hhmm)) + hhmm
	}
	return hhmm
}

// parseHHMM combines a base date with an HHMM time string (e.g. "1510" → 15:10).
func parseHHMM(baseDate time.Time, hhmm string) time.Time {
	hhmm = normalizeHHMM(hhmm)
	if len(hhmm) != 4 {
		return baseDate
	}
	hour, errH := strconv.Atoi(hhmm[:2])
	mins, errM := strconv.Atoi(hhmm[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return baseDate
	}
	return time.Date(
		baseDate.Year(), baseDate.Month(), baseDate.Day(),
		hour, mins, 0, 0, time.UTC,
	)
}

// generateID produces a deterministic ID from the detection's key fields.
func generateID(lat, lon float64, acqDate, acqTime, satellite string) string {
	input := fmt.Sprintf("%.5f|%.5f|%s|%s|%s", lat, lon, acqDate, acqTime, satellite)
	hash := sha256.Sum256([]byte(input))
	return "det-" + hex.EncodeToString(hash[:8])
}
