package clients

import (
	"context"
	"net/url"
	"strconv"

	"chargemap/backend/services/station-sync/internal/models"
)

// ReliabilityClient reads reliability metrics.
type ReliabilityClient struct {
	base *BaseClient
}

// NewReliabilityClient returns client.
func NewReliabilityClient(base *BaseClient) *ReliabilityClient {
	return &ReliabilityClient{base: base}
}

// ByStation returns metrics for one station.
func (c *ReliabilityClient) ByStation(ctx context.Context, stationID string) (models.StationReliability, error) {
	return Get[models.StationReliability](ctx, c.base, "/reliability/station/"+url.PathEscape(stationID), nil)
}

// MostReliable returns the top stations by score.
func (c *ReliabilityClient) MostReliable(ctx context.Context, limit int) ([]models.StationReliability, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	return Get[[]models.StationReliability](ctx, c.base, "/reliability/most-reliable", params)
}

// AboveThreshold returns stations scoring at least minScore.
func (c *ReliabilityClient) AboveThreshold(ctx context.Context, minScore float64) ([]models.StationReliability, error) {
	params := url.Values{}
	params.Set("minScore", formatFloat(minScore))
	return Get[[]models.StationReliability](ctx, c.base, "/reliability/threshold", params)
}
