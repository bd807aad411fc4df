package cluster

import (
	"slices"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/geo"
)

// DefaultRadiusKm is the neighborhood radius used for point queries.
const DefaultRadiusKm = 10.0

// AggregateNearby returns the detections within radiusKm of the center and their
// summary. Unlike Cluster, membership depends only on distance to the center.
func AggregateNearby(all []domain.FireDetection, centerLat, centerLon, radiusKm float64) ([]domain.FireDetection, domain.Aggregate) {
	var items []domain.FireDetection
	for _, d := range all {
		if geo.DistanceKm(centerLat, centerLon, d.Latitude, d.Longitude) <= radiusKm {
			items = append(items, d)
		}
	}
	return items, Summarize(items)
}

// Summarize aggregates a group of detections. An empty group yields a zero
// Aggregate; averages divide by at least 1.
func Summarize(items []domain.FireDetection) domain.Aggregate {
	agg := domain.Aggregate{Count: len(items)}
	divisor := float64(max(len(items), 1))

	var bt4Sum, bt5Sum float64
	hasHigh, hasNominal := false, false
	dayNight := make(map[string]struct{})
	dates := make([]string, 0, len(items))

	for _, d := range items {
		agg.FRPSum += d.FRP
		bt4Sum += d.BrightTI4
		bt5Sum += d.BrightTI5
		switch d.Confidence {
		case "h":
			hasHigh = true
		case "n":
			hasNominal = true
		}
		dayNight[d.DayNight] = struct{}{}
		if d.AcqDate != "" {
			dates = append(dates, d.AcqDate)
		}
	}

	agg.FRPAvg = agg.FRPSum / divisor
	agg.BrightTI4Avg = bt4Sum / divisor
	agg.BrightTI5Avg = bt5Sum / divisor

	switch {
	case hasHigh:
		agg.Confidence = "h"
	case hasNominal:
		agg.Confidence = "n"
	case len(items) > 0:
		agg.Confidence = items[0].Confidence
	}

	switch len(dayNight) {
	case 0:
	case 1:
		agg.DayNight = items[0].DayNight
	default:
		agg.DayNight = "M"
	}

	agg.DateRange = dateRange(dates)
	return agg
}

func dateRange(dates []string) string {
	if len(dates) == 0 {
		return ""
	}
	slices.Sort(dates)
	first, last := dates[0], dates[len(dates)-1]
	if first == last {
		return first
	}
	return first + "…" + last
}

// Representative picks the detection that best stands for a group: the most
// recently acquired, then the one with the highest FRP.
func Representative(items []domain.FireDetection) (domain.FireDetection, bool) {
	if len(items) == 0 {
		return domain.FireDetection{}, false
	}
	best := items[0]
	bestAt := best.AcquiredAt()
	for _, d := range items[1:] {
		at := d.AcquiredAt()
		if at.After(bestAt) || (at.Equal(bestAt) && d.FRP > best.FRP) {
			best, bestAt = d, at
		}
	}
	return best, true
}
