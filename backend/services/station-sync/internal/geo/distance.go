// Package geo holds great-circle math and map clustering for station lists.
package geo

import (
	"math"
	"sort"

	"chargemap/backend/services/station-sync/internal/models"
)

// EarthRadiusMeters is the mean Earth radius used by Distance.
const EarthRadiusMeters = 6371000.0

// Distance returns the great-circle distance in meters between two points (Haversine).
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaLat := (lat2 - lat1) * math.Pi / 180
	deltaLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(phi1)*math.Cos(phi2)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)
	// Rounding can push a just past 1 for antipodal points.
	a = math.Min(1, math.Max(0, a))
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return EarthRadiusMeters * c
}

// StationDistance is a station annotated with its distance from a reference point.
type StationDistance struct {
	Station        models.Station `json:"station"`
	DistanceMeters float64        `json:"distanceMeters"`
}

// SortByDistance returns stations ordered nearest first. Ties keep input order.
func SortByDistance(stations []models.Station, lat, lon float64) []StationDistance {
	result := make([]StationDistance, len(stations))
	for i, st := range stations {
		result[i] = StationDistance{
			Station:        st,
			DistanceMeters: Distance(lat, lon, st.Latitude, st.Longitude),
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DistanceMeters < result[j].DistanceMeters
	})
	return result
}

// WithinRadius keeps stations no further than radiusMeters, nearest first.
func WithinRadius(stations []models.Station, lat, lon, radiusMeters float64) []StationDistance {
	sorted := SortByDistance(stations, lat, lon)
	cut := sort.Search(len(sorted), func(i int) bool {
		return sorted[i].DistanceMeters > radiusMeters
	})
	return sorted[:cut]
}
