package clients

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"chargemap/backend/services/station-sync/internal/models"
)

// StationsClient reads station data from the backend.
type StationsClient struct {
	base *BaseClient
}

// NewStationsClient returns client.
func NewStationsClient(base *BaseClient) *StationsClient {
	return &StationsClient{base: base}
}

// ListStations fetches the full station list.
func (c *StationsClient) ListStations(ctx context.Context) ([]models.Station, error) {
	return Get[[]models.Station](ctx, c.base, "/stations", nil)
}

// GetStation fetches one station with its connectors.
func (c *StationsClient) GetStation(ctx context.Context, id string) (models.Station, error) {
	return Get[models.Station](ctx, c.base, "/stations/"+url.PathEscape(id), nil)
}

// FilterStations applies server-side filtering.
func (c *StationsClient) FilterStations(ctx context.Context, filter models.StationFilter) ([]models.Station, error) {
	params := url.Values{}
	if filter.NetworkID != "" {
		params.Set("networkId", filter.NetworkID)
	}
	if filter.ConnectorType != "" {
		params.Set("connectorType", string(filter.ConnectorType))
	}
	if filter.MinPowerKW > 0 {
		params.Set("minPower", formatFloat(filter.MinPowerKW))
	}
	if filter.MinReliability > 0 {
		params.Set("minReliability", formatFloat(filter.MinReliability))
	}
	if filter.AvailableOnly {
		params.Set("availableOnly", "true")
	}
	if filter.City != "" {
		params.Set("city", filter.City)
	}
	return Get[[]models.Station](ctx, c.base, "/stations/filter", params)
}

// StationsByCity lists stations in a city.
func (c *StationsClient) StationsByCity(ctx context.Context, city string) ([]models.Station, error) {
	return Get[[]models.Station](ctx, c.base, "/stations/city/"+url.PathEscape(city), nil)
}

// NearbyStations lists stations within radiusKm of a point.
func (c *StationsClient) NearbyStations(ctx context.Context, lat, lon, radiusKm float64) ([]models.Station, error) {
	params := url.Values{}
	params.Set("latitude", formatFloat(lat))
	params.Set("longitude", formatFloat(lon))
	params.Set("radius", formatFloat(radiusKm))
	return Get[[]models.Station](ctx, c.base, "/stations/nearby", params)
}

// Health checks backend health.
func (c *StationsClient) Health(ctx context.Context) error {
	return c.base.Do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
