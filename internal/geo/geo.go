// Package geo provides great-circle math on a spherical Earth.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by every distance computation.
const EarthRadiusKm = 6371.0

// kmPerDegree approximates the length of one degree of latitude.
const kmPerDegree = 111.0

// Point is a WGS-84 latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DegToRad converts degrees to radians.
func DegToRad(deg float64) float64 {
	return deg * math.Pi / 180
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180 / math.Pi
}

// DistanceKm returns the haversine distance between two coordinates.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := DegToRad(lat2 - lat1)
	dLon := DegToRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(DegToRad(lat1))*math.Cos(DegToRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	a = math.Min(1, a)
	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// DestinationPoint projects distanceKm from (lat, lon) along the initial
// bearing bearingDeg (clockwise from north) and returns the end coordinate.
func DestinationPoint(lat, lon, bearingDeg, distanceKm float64) (float64, float64) {
	latRad := DegToRad(lat)
	lonRad := DegToRad(lon)
	bearing := DegToRad(bearingDeg)
	delta := distanceKm / EarthRadiusKm

	endLat := math.Asin(math.Sin(latRad)*math.Cos(delta) +
		math.Cos(latRad)*math.Sin(delta)*math.Cos(bearing))
	endLon := lonRad + math.Atan2(
		math.Sin(bearing)*math.Sin(delta)*math.Cos(latRad),
		math.Cos(delta)-math.Sin(latRad)*math.Sin(endLat),
	)
	return RadToDeg(endLat), RadToDeg(endLon)
}

// Circle approximates a circle of radiusKm around (lat, lon) with n points using
// the flat 111 km-per-degree approximation. The ring is closed: the first point
// is repeated at the end.
func Circle(lat, lon, radiusKm float64, n int) []Point {
	if n < 3 {
		n = 3
	}
	lonScale := kmPerDegree * math.Cos(DegToRad(lat))
	ring := make([]Point, 0, n+1)
	for i := range n {
		angle := float64(i) / float64(n) * 2 * math.Pi
		ring = append(ring, Point{
			Lat: lat + radiusKm/kmPerDegree*math.Cos(angle),
			Lon: lon + radiusKm/lonScale*math.Sin(angle),
		})
	}
	return append(ring, ring[0])
}
