// Package cluster groups fire detections into spatially connected clusters and
// summarizes the activity around a point.
package cluster

import (
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/couchcryptid/wildfire-risk-engine/internal/domain"
	"github.com/couchcryptid/wildfire-risk-engine/internal/geo"
)

// DefaultThresholdKm is the linking distance used by the detection pipeline.
const DefaultThresholdKm = 10.0

// clusterNamespace seeds deterministic (UUIDv5) cluster IDs.
var clusterNamespace = uuid.MustParse("6f1c9a52-3d0e-4b8a-9f57-2c1e8d4b7a10")

// Cluster partitions detections into connected components of the graph whose
// edges join any two detections at most thresholdKm apart. Components are
// discovered breadth-first, so members of one cluster may be far from each
// other as long as a chain of close detections links them.
//
// Every detection appears in exactly one cluster. Members keep discovery order;
// clusters are ordered by their first member's position in the input.
func Cluster(detections []domain.FireDetection, thresholdKm float64) []domain.FireCluster {
	n := len(detections)
	visited := make([]bool, n)
	var clusters []domain.FireCluster

	for i := range n {
		if visited[i] {
			continue
		}
		visited[i] = true
		queue := []int{i}

		for head := 0; head < len(queue); head++ {
			k := queue[head]
			for j := range n {
				if visited[j] {
					continue
				}
				d := geo.DistanceKm(
					detections[k].Latitude, detections[k].Longitude,
					detections[j].Latitude, detections[j].Longitude,
				)
				if d <= thresholdKm {
					visited[j] = true
					queue = append(queue, j)
				}
			}
		}

		members := make([]domain.FireDetection, len(queue))
		for m, idx := range queue {
			members[m] = detections[idx]
		}
		clusters = append(clusters, newCluster(members))
	}

	return clusters
}

func newCluster(members []domain.FireDetection) domain.FireCluster {
	var latSum, lonSum float64
	for _, d := range members {
		latSum += d.Latitude
		lonSum += d.Longitude
	}
	n := float64(len(members))
	return domain.FireCluster{
		ID:         clusterID(members),
		CenterLat:  latSum / n,
		CenterLon:  lonSum / n,
		Detections: members,
		Summary:    Summarize(members),
	}
}

// clusterID hashes the sorted member IDs so the same component always gets the
// same ID regardless of input order.
func clusterID(members []domain.FireDetection) string {
	ids := make([]string, len(members))
	for i, d := range members {
		ids[i] = d.ID
	}
	slices.Sort(ids)
	return uuid.NewSHA1(clusterNamespace, []byte(strings.Join(ids, ","))).String()
}
