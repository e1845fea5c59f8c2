package geo

import (
	"math"
	"testing"

	"chargemap/backend/services/station-sync/internal/models"
)

// metersPerDegreeLat is the length of one degree of latitude for EarthRadiusMeters.
const metersPerDegreeLat = EarthRadiusMeters * math.Pi / 180

func station(id string, lat, lon float64) models.Station {
	return models.Station{ID: id, Latitude: lat, Longitude: lon}
}

func TestDistanceIdenticalPointsIsZero(t *testing.T) {
	if d := Distance(59.437, 24.754, 59.437, 24.754); d != 0 {
		t.Fatalf("expected 0, got %v", d)
	}
}

func TestDistanceIsSymmetric(t *testing.T) {
	points := [][2]float64{
		{59.437, 24.754},
		{58.378, 26.729},
		{-33.868, 151.209},
		{40.713, -74.006},
		{0, 179.9},
		{0, -179.9},
	}
	for _, a := range points {
		for _, b := range points {
			ab := Distance(a[0], a[1], b[0], b[1])
			ba := Distance(b[0], b[1], a[0], a[1])
			if math.Abs(ab-ba) > 1e-6 {
				t.Fatalf("asymmetric distance %v vs %v for %v %v", ab, ba, a, b)
			}
		}
	}
}

func TestDistanceTriangleInequality(t *testing.T) {
	a := [2]float64{59.437, 24.754}
	b := [2]float64{58.378, 26.729}
	c := [2]float64{57.776, 26.047}

	ab := Distance(a[0], a[1], b[0], b[1])
	bc := Distance(b[0], b[1], c[0], c[1])
	ac := Distance(a[0], a[1], c[0], c[1])
	if ac > ab+bc+1e-6 {
		t.Fatalf("triangle inequality violated: %v > %v + %v", ac, ab, bc)
	}
}

func TestDistanceNearAntipodalIsFinite(t *testing.T) {
	maxDistance := EarthRadiusMeters * math.Pi
	for lat := -89.0; lat <= 89.0; lat += 0.37 {
		for lon := -180.0; lon <= 180.0; lon += 1.0 {
			d := Distance(lat, lon, -lat, lon+180)
			if math.IsNaN(d) || d > maxDistance+1e-6 {
				t.Fatalf("distance from (%v, %v) to its antipode = %v", lat, lon, d)
			}
			if math.Abs(d-maxDistance) > 1 {
				t.Fatalf("expected half circumference for (%v, %v), got %v", lat, lon, d)
			}
		}
	}
}

func TestDistanceKnownValue(t *testing.T) {
	d := Distance(0, 0, 1, 0)
	if math.Abs(d-metersPerDegreeLat) > 1e-6 {
		t.Fatalf("expected %v, got %v", metersPerDegreeLat, d)
	}
	// Tallinn to Tartu is roughly 163 km.
	tt := Distance(59.437, 24.754, 58.378, 26.729)
	if tt < 160000 || tt > 166000 {
		t.Fatalf("unexpected Tallinn-Tartu distance %v", tt)
	}
}

func TestClusterStationsNearbyMerge(t *testing.T) {
	offset := 10 / metersPerDegreeLat
	clusters := ClusterStations([]models.Station{
		station("a", 59.437, 24.754),
		station("b", 59.437+offset, 24.754),
	}, 100)

	if len(clusters) != 1 || clusters[0].Size() != 2 {
		t.Fatalf("expected one cluster of two, got %+v", clusters)
	}
	if clusters[0].SeedID != "a" {
		t.Fatalf("expected first station to seed, got %q", clusters[0].SeedID)
	}
}

func TestClusterStationsFarApartStaySeparate(t *testing.T) {
	offset := 1000 / metersPerDegreeLat
	clusters := ClusterStations([]models.Station{
		station("a", 59.437, 24.754),
		station("b", 59.437+offset, 24.754),
	}, 100)

	if len(clusters) != 2 || clusters[0].Size() != 1 || clusters[1].Size() != 1 {
		t.Fatalf("expected two singleton clusters, got %+v", clusters)
	}
}

func TestClusterStationsLinksToSeedOnly(t *testing.T) {
	step := 80 / metersPerDegreeLat
	a := station("a", 59.437, 24.754)
	b := station("b", 59.437+step, 24.754)
	c := station("c", 59.437+2*step, 24.754)

	fromA := ClusterStations([]models.Station{a, b, c}, 100)
	if len(fromA) != 2 || fromA[0].Size() != 2 || fromA[1].SeedID != "c" {
		t.Fatalf("c is 160m from seed a and must start its own cluster, got %+v", fromA)
	}

	fromB := ClusterStations([]models.Station{b, a, c}, 100)
	if len(fromB) != 1 || fromB[0].Size() != 3 {
		t.Fatalf("seed b reaches both neighbours, got %+v", fromB)
	}
}

func TestClusterStationsDefaultsThreshold(t *testing.T) {
	offset := 50 / metersPerDegreeLat
	clusters := ClusterStations([]models.Station{
		station("a", 0, 0),
		station("b", offset, 0),
	}, 0)
	if len(clusters) != 1 {
		t.Fatalf("expected default 100m threshold to merge, got %d clusters", len(clusters))
	}
	if ClusterStations(nil, 100) != nil {
		t.Fatalf("expected nil for no stations")
	}
}

func TestWithinRadiusSortsAndCuts(t *testing.T) {
	km := 1000 / metersPerDegreeLat
	stations := []models.Station{
		station("far", 3*km, 0),
		station("near", 0.5*km, 0),
		station("mid", 1.5*km, 0),
	}

	got := WithinRadius(stations, 0, 0, 2000)
	if len(got) != 2 || got[0].Station.ID != "near" || got[1].Station.ID != "mid" {
		t.Fatalf("unexpected result %+v", got)
	}
	if math.Abs(got[0].DistanceMeters-500) > 1e-3 {
		t.Fatalf("expected ~500m, got %v", got[0].DistanceMeters)
	}
}
