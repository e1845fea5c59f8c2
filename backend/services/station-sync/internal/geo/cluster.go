package geo

import "chargemap/backend/services/station-sync/internal/models"

// DefaultClusterThresholdMeters is used when ClusterStations gets a non-positive threshold.
const DefaultClusterThresholdMeters = 100.0

// Cluster groups stations drawn as one map marker.
type Cluster struct {
	// Latitude and Longitude are the mean of member coordinates.
	Latitude  float64          `json:"latitude"`
	Longitude float64          `json:"longitude"`
	SeedID    string           `json:"seedId"`
	Stations  []models.Station `json:"stations"`
}

// Size returns the number of stations in the cluster.
func (c Cluster) Size() int {
	return len(c.Stations)
}

// ClusterStations groups stations greedily in input order. Each unassigned station seeds a
// cluster and absorbs every later unassigned station within thresholdMeters of the seed itself,
// not of other members. The result depends on input order and is not globally optimal.
func ClusterStations(stations []models.Station, thresholdMeters float64) []Cluster {
	if thresholdMeters <= 0 {
		thresholdMeters = DefaultClusterThresholdMeters
	}

	assigned := make([]bool, len(stations))
	var clusters []Cluster

	for i, seed := range stations {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []models.Station{seed}

		for j := i + 1; j < len(stations); j++ {
			if assigned[j] {
				continue
			}
			other := stations[j]
			if Distance(seed.Latitude, seed.Longitude, other.Latitude, other.Longitude) <= thresholdMeters {
				assigned[j] = true
				members = append(members, other)
			}
		}

		var sumLat, sumLon float64
		for _, m := range members {
			sumLat += m.Latitude
			sumLon += m.Longitude
		}
		clusters = append(clusters, Cluster{
			Latitude:  sumLat / float64(len(members)),
			Longitude: sumLon / float64(len(members)),
			SeedID:    seed.ID,
			Stations:  members,
		})
	}
	return clusters
}
