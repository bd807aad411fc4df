// Package settlement holds the built-in list of populated places and nearest-place lookups.
package settlement

import (
	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/geo"
)

// Nearest returns the candidate closest to (lat, lon) and its distance in km.
// It returns false when there are no candidates.
func Nearest(lat, lon float64, candidates []domain.Settlement) (domain.Settlement, float64, bool) {
	if len(candidates) == 0 {
		return domain.Settlement{}, 0, false
	}
	best := candidates[0]
	bestKm := geo.DistanceKm(lat, lon, best.Lat, best.Lon)
	for _, c := range candidates[1:] {
		if d := geo.DistanceKm(lat, lon, c.Lat, c.Lon); d < bestKm {
			best, bestKm = c, d
		}
	}
	return best, bestKm, true
}

// ByName finds a settlement by exact name.
func ByName(name string, candidates []domain.Settlement) (domain.Settlement, bool) {
	for _, c := range candidates {
		if c.Name == name {
			return c, true
		}
	}
	return domain.Settlement{}, false
}
