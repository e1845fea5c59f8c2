package clients

import (
	"context"
	"net/url"

	"chargemap/backend/services/station-sync/internal/models"
)

// ReportsClient submits and counts user reports.
type ReportsClient struct {
	base *BaseClient
}

// NewReportsClient returns client.
func NewReportsClient(base *BaseClient) *ReportsClient {
	return &ReportsClient{base: base}
}

// Create submits a report for the current device.
func (c *ReportsClient) Create(ctx context.Context, req models.ReportRequest) (models.Report, error) {
	return Post[models.Report](ctx, c.base, "/reports", req)
}

// CountForStation returns the number of reports filed for a station.
func (c *ReportsClient) CountForStation(ctx context.Context, stationID string) (models.ReportCount, error) {
	return Get[models.ReportCount](ctx, c.base, "/reports/station/"+url.PathEscape(stationID)+"/count", nil)
}
