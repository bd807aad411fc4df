// Package geojson renders clusters, spread predictions and city risk as GeoJSON
// feature collections for map clients.
package geojson

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/fwi"
	"github.com/couchcryptid/wildfire-risk-engine/internal/geo"
)

const circlePoints = 32

// Clusters returns one Point feature per cluster, placed at its centroid.
func Clusters(clusters []domain.FireCluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range clusters {
		fc.Append(clusterFeature(c))
	}
	return fc
}

func clusterFeature(c domain.FireCluster) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{c.CenterLon, c.CenterLat})
	f.ID = c.ID

	s := c.Summary
	f.Properties["count"] = s.Count
	f.Properties["frp"] = round2(s.FRPAvg)
	f.Properties["frp_sum"] = round2(s.FRPSum)
	f.Properties["bright_ti4"] = round2(s.BrightTI4Avg)
	f.Properties["bright_ti5"] = round2(s.BrightTI5Avg)
	f.Properties["confidence"] = s.Confidence
	f.Properties["daynight"] = s.DayNight
	f.Properties["date"] = s.DateRange

	if len(c.Detections) == 1 {
		d := c.Detections[0]
		f.Properties["time"] = d.AcqTime
		f.Properties["time_fmt"] = formatHHMM(d.AcqTime)
		f.Properties["satellite"] = d.Satellite
		f.Properties["instrument"] = d.Instrument
		f.Properties["is_report"] = d.IsReport
		if d.ImageURL != "" {
			f.Properties["image_url"] = d.ImageURL
		}
	} else {
		f.Properties["time"] = ""
		f.Properties["time_fmt"] = ""
		f.Properties["satellite"] = "multiple"
		f.Properties["instrument"] = "multiple"
		f.Properties["is_report"] = false
	}
	return f
}

// Spread returns the arrow (LineString) and affected-area circle (Polygon) for a
// prediction. Predictions too small to draw produce an empty collection.
func Spread(det domain.FireDetection, p domain.SpreadPrediction, horizonMinutes int) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if !p.Drawable() {
		return fc
	}

	endLat, endLon := geo.DestinationPoint(det.Latitude, det.Longitude, p.DirectionDeg, p.RadiusKm*0.5)
	arrow := geojson.NewFeature(orb.LineString{
		{det.Longitude, det.Latitude},
		{endLon, endLat},
	})
	arrow.Properties["kind"] = "arrow"
	arrow.Properties["detection_id"] = det.ID
	arrow.Properties["speed"] = p.SpeedKPH
	arrow.Properties["direction"] = p.DirectionDeg
	arrow.Properties["radius"] = p.RadiusKm
	fc.Append(arrow)

	area := geojson.NewFeature(circle(det.Latitude, det.Longitude, p.RadiusKm))
	area.Properties["kind"] = "area"
	area.Properties["detection_id"] = det.ID
	area.Properties["radius"] = p.RadiusKm
	area.Properties["area"] = p.AreaKm2
	area.Properties["time_minutes"] = horizonMinutes
	fc.Append(area)

	return fc
}

// CityRisk is a settlement with its current risk percentage.
type CityRisk struct {
	domain.Settlement
	RiskPercent float64
}

// CityRisks returns a marker circle per city whose radius grows with risk.
func CityRisks(cities []CityRisk) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cities {
		radiusKm := 0.5 + c.RiskPercent/20
		f := geojson.NewFeature(circle(c.Lat, c.Lon, radiusKm))
		f.Properties["name"] = c.Name
		f.Properties["risk"] = c.RiskPercent
		f.Properties["level"] = fwi.Level(c.RiskPercent)
		f.Properties["color"] = fwi.Color(c.RiskPercent)
		fc.Append(f)
	}
	return fc
}

func circle(lat, lon, radiusKm float64) orb.Polygon {
	pts := geo.Circle(lat, lon, radiusKm, circlePoints)
	ring := make(orb.Ring, len(pts))
	for i, p := range pts {
		ring[i] = orb.Point{p.Lon, p.Lat}
	}
	return orb.Polygon{ring}
}

// formatHHMM renders "930" or "0930" as "09:30"; malformed input yields "".
func formatHHMM(hhmm string) string {
	if hhmm == "" || len(hhmm) > 4 {
		return ""
	}
	for len(hhmm) < 4 {
		hhmm = "0" + hhmm
	}
	return hhmm[:2] + ":" + hhmm[2:]
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
